package models

import (
	"time"

	"github.com/google/uuid"
)

// Sub-user roles.
const (
	SubUserRoleUser      = "user"
	SubUserRoleAdmin     = "admin"
	SubUserRoleModerator = "moderator"
)

// SubUser is a member login belonging to exactly one User.
type SubUser struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
