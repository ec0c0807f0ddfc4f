package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleOwner is the role carried by an account holder's own token.
const RoleOwner = "owner"

// Subscription is a paid plan period on an account.
type Subscription struct {
	Plan           string    `json:"plan"`
	DurationMonths int       `json:"durationMonths"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	IsValid        bool      `json:"isValid"`
	PaymentID      string    `json:"paymentId,omitempty"`
	OrderID        string    `json:"orderId,omitempty"`
}

// Active reports whether the subscription is valid at t.
func (s *Subscription) Active(t time.Time) bool {
	return s != nil && s.IsValid && t.Before(s.EndDate)
}

// User represents an account holder that owns events and sub-users.
type User struct {
	ID                  uuid.UUID      `json:"id"`
	Email               string         `json:"email"`
	Username            string         `json:"username"`
	Password            string         `json:"-"`
	Organization        string         `json:"organization"`
	ContactName         string         `json:"contactName"`
	Phone               string         `json:"phone"`
	Subscription        *Subscription  `json:"subscription,omitempty"`
	SubscriptionHistory []Subscription `json:"subscriptionHistory"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID           uuid.UUID     `json:"id"`
	Email        string        `json:"email"`
	Username     string        `json:"username"`
	Organization string        `json:"organization"`
	ContactName  string        `json:"contactName"`
	Phone        string        `json:"phone"`
	Subscription *Subscription `json:"subscription,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		Organization: u.Organization,
		ContactName:  u.ContactName,
		Phone:        u.Phone,
		Subscription: u.Subscription,
		CreatedAt:    u.CreatedAt,
	}
}
