package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/pkg/response"
)

// RequireRole allows only callers whose token role is one of roles.
// Account holders carry models.RoleOwner; sub-users carry their own role.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if role == "" {
			response.Fail(c, apperr.New(apperr.Unauthenticated, "missing caller identity"))
			return
		}
		if !allowed[role] {
			response.Fail(c, apperr.New(apperr.Forbidden, "this action requires one of the roles: "+strings.Join(roles, ", ")))
			return
		}
		c.Next()
	}
}
