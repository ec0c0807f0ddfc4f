package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus for subscription payment orders.
const (
	OrderStatusCreated = "created"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// Order is a subscription payment order created with the payment gateway.
type Order struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"userId"`
	Plan              string    `json:"plan"`
	DurationMonths    int       `json:"durationMonths"`
	Amount            int64     `json:"amount"` // minor units
	Currency          string    `json:"currency"`
	ProviderOrderID   string    `json:"providerOrderId"`
	ProviderPaymentID string    `json:"providerPaymentId,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
