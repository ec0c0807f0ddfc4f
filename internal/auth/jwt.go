package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/eventvote/backend/internal/apperr"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	// ErrMisconfigured is returned when no signing secret is configured.
	ErrMisconfigured = apperr.New(apperr.Misconfigured, "server misconfiguration: JWT secret not set")
)

// Identity is the authenticated caller. UserID is always the owning account;
// SubUserID is set when a sub-user logged in on that account's behalf.
type Identity struct {
	UserID    uuid.UUID
	SubUserID *uuid.UUID
	Email     string
	Role      string
}

// Claims holds JWT claims including user ID and role.
type Claims struct {
	UserID    uuid.UUID  `json:"user_id"`
	SubUserID *uuid.UUID `json:"sub_user_id,omitempty"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the caller described by the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, SubUserID: c.SubUserID, Email: c.Email, Role: c.Role}
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret      []byte
	expireHours int
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours int) *JWTService {
	if expireHours <= 0 {
		expireHours = 24
	}
	return &JWTService{
		secret:      []byte(secret),
		expireHours: expireHours,
	}
}

// Configured reports whether a signing secret is set.
func (s *JWTService) Configured() bool { return len(s.secret) > 0 }

// Generate creates a new JWT for the identity.
func (s *JWTService) Generate(id Identity) (string, error) {
	if !s.Configured() {
		return "", ErrMisconfigured
	}
	now := time.Now()
	claims := Claims{
		UserID:    id.UserID,
		SubUserID: id.SubUserID,
		Email:     id.Email,
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	if !s.Configured() {
		return nil, ErrMisconfigured
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
