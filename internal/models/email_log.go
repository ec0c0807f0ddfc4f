package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType identifies what an outgoing email is for.
const (
	EmailTypePasswordReset  = "password_reset"
	EmailTypeContactReceipt = "contact_receipt"
	EmailTypeWelcome        = "welcome"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records one delivery attempt outcome.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	UserID         *uuid.UUID `json:"userId,omitempty"`
	EmailType      string     `json:"emailType"`
	RecipientEmail string     `json:"recipientEmail"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
