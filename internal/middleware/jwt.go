package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/auth"
	"github.com/eventvote/backend/pkg/response"
)

const (
	// ContextUserID is the key for the owning account ID in gin context.
	ContextUserID = "user_id"
	// ContextSubUserID is the key for the sub-user ID when a sub-user is signed in.
	ContextSubUserID = "sub_user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// TokenValidator validates a bearer token.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// JWT returns a middleware that validates the bearer token and sets the caller in context.
// No header is 401; a malformed header or a bad or expired token is 403.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "authentication required")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Forbidden(c, "invalid authorization header")
			return
		}
		claims, err := validator.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, auth.ErrMisconfigured) {
				response.Fail(c, err)
				return
			}
			response.Forbidden(c, "invalid or expired token")
			return
		}
		c.Set(ContextUserID, claims.UserID)
		if claims.SubUserID != nil {
			c.Set(ContextSubUserID, *claims.SubUserID)
		}
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

// OwnerID returns the owning account of the authenticated caller.
// Sub-users resolve to the account they belong to.
func OwnerID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextUserID).(uuid.UUID)
}

// Identity returns the authenticated caller, or an Unauthenticated error outside the JWT group.
func Identity(c *gin.Context) (auth.Identity, error) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return auth.Identity{}, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	id := auth.Identity{UserID: v.(uuid.UUID), Role: c.GetString(ContextUserRole), Email: c.GetString(ContextUserEmail)}
	if s, ok := c.Get(ContextSubUserID); ok {
		sid := s.(uuid.UUID)
		id.SubUserID = &sid
	}
	return id, nil
}
