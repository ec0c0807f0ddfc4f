package subscriptions

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/validation"
)

// Store is the persistence used by the service.
type Store interface {
	CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error)
	GetOrder(ctx context.Context, userID uuid.UUID, providerOrderID string) (*models.Order, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID) error
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Activate(ctx context.Context, order *models.Order, paymentID string, sub models.Subscription) (*models.User, error)
}

// OrderRequest selects a plan by its duration.
type OrderRequest struct {
	DurationMonths int `json:"durationMonths" binding:"required"`
}

// OrderResponse is what the checkout needs to collect a payment.
type OrderResponse struct {
	OrderID  string `json:"orderId"`
	KeyID    string `json:"keyId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Plan     string `json:"plan"`
}

// VerifyRequest is the checkout's payment confirmation.
type VerifyRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// State is an account's current subscription and its history, oldest first.
type State struct {
	Subscription *models.Subscription  `json:"subscription"`
	Active       bool                  `json:"active"`
	History      []models.Subscription `json:"history"`
}

// Service sells subscription plans.
type Service struct {
	store    Store
	gateway  *Gateway
	prices   map[int]int64
	currency string
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a subscriptions service. prices maps plan months to minor units.
func NewService(store Store, gateway *Gateway, prices map[int]int64, currency string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, gateway: gateway, prices: prices, currency: currency, logger: logger, now: time.Now}
}

// PlanName is the display name of a plan of the given length.
func PlanName(months int) string {
	if months == 1 {
		return "1 month"
	}
	return fmt.Sprintf("%d months", months)
}

func (s *Service) durations() []int {
	out := make([]int, 0, len(s.prices))
	for m := range s.prices {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// CreateOrder opens a payment order for the plan of req.DurationMonths.
func (s *Service) CreateOrder(ctx context.Context, userID uuid.UUID, req OrderRequest) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !s.gateway.Configured() {
		return nil, apperr.New(apperr.Misconfigured, "payment gateway is not configured")
	}
	price, ok := s.prices[req.DurationMonths]
	if !ok {
		return nil, &apperr.Error{
			Kind:    apperr.Validation,
			Message: "unknown plan duration",
			Field:   "durationMonths",
			Details: map[string]interface{}{"available": s.durations()},
		}
	}
	providerID, err := s.gateway.NewOrderID()
	if err != nil {
		return nil, err
	}
	o, err := s.store.CreateOrder(ctx, &models.Order{
		UserID:          userID,
		Plan:            PlanName(req.DurationMonths),
		DurationMonths:  req.DurationMonths,
		Amount:          price,
		Currency:        s.currency,
		ProviderOrderID: providerID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("order created", zap.String("user_id", userID.String()), zap.String("order_id", o.ProviderOrderID),
		zap.Int64("amount", o.Amount))
	return &OrderResponse{OrderID: o.ProviderOrderID, KeyID: s.gateway.KeyID(), Amount: o.Amount, Currency: o.Currency, Plan: o.Plan}, nil
}

// Verify checks the payment signature and activates the order's plan from now.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, req VerifyRequest) (*State, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	order, err := s.store.GetOrder(ctx, userID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusCreated {
		return nil, ErrOrderProcessed
	}
	if !s.gateway.Verify(req.OrderID, req.PaymentID, req.Signature) {
		if err := s.store.MarkFailed(ctx, order.ID); err != nil {
			s.logger.Warn("mark order failed", zap.String("order_id", order.ProviderOrderID), zap.Error(err))
		}
		s.logger.Warn("payment signature mismatch", zap.String("user_id", userID.String()), zap.String("order_id", req.OrderID))
		return nil, apperr.Invalid("signature", "payment signature verification failed")
	}

	start := s.now().UTC()
	sub := models.Subscription{
		Plan:           order.Plan,
		DurationMonths: order.DurationMonths,
		StartDate:      start,
		EndDate:        start.AddDate(0, order.DurationMonths, 0),
		IsValid:        true,
		PaymentID:      req.PaymentID,
		OrderID:        req.OrderID,
	}
	u, err := s.store.Activate(ctx, order, req.PaymentID, sub)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subscription activated", zap.String("user_id", userID.String()), zap.String("plan", sub.Plan),
		zap.Time("end_date", sub.EndDate))
	return s.stateOf(u), nil
}

// Current returns the user's subscription state.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*State, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.stateOf(u), nil
}

func (s *Service) stateOf(u *models.User) *State {
	history := u.SubscriptionHistory
	if history == nil {
		history = []models.Subscription{}
	}
	return &State{Subscription: u.Subscription, Active: u.Subscription.Active(s.now()), History: history}
}
