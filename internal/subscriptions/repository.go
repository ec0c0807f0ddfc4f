package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/auth"
	"github.com/eventvote/backend/internal/models"
)

// ErrOrderProcessed is returned when a paid or failed order is verified again.
var ErrOrderProcessed = apperr.Invalid("orderId", "order has already been processed")

// Repository handles orders and the subscription columns of users.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a subscriptions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, user_id, plan, duration_months, amount, currency, provider_order_id,
	COALESCE(provider_payment_id, ''), status, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Plan, &o.DurationMonths, &o.Amount, &o.Currency, &o.ProviderOrderID,
		&o.ProviderPaymentID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder inserts a new order in the created state.
func (r *Repository) CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	q := `INSERT INTO orders (user_id, plan, duration_months, amount, currency, provider_order_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + orderColumns
	out, err := scanOrder(r.pool.QueryRow(ctx, q, o.UserID, o.Plan, o.DurationMonths, o.Amount, o.Currency, o.ProviderOrderID))
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return out, nil
}

// GetOrder returns the user's order with the given gateway order id.
func (r *Repository) GetOrder(ctx context.Context, userID uuid.UUID, providerOrderID string) (*models.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE provider_order_id = $1 AND user_id = $2`, providerOrderID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order")
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// MarkFailed moves a created order to failed.
func (r *Repository) MarkFailed(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		orderID, models.OrderStatusFailed, models.OrderStatusCreated)
	if err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}
	return nil
}

// GetUser returns the account with its subscription state.
func (r *Repository) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := auth.ScanUser(r.pool.QueryRow(ctx, `SELECT `+auth.UserColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Activate marks the order paid and installs sub as the user's subscription in one
// transaction. The subscription it replaces is appended to the history.
func (r *Repository) Activate(ctx context.Context, order *models.Order, paymentID string, sub models.Subscription) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2, provider_payment_id = $3, updated_at = NOW() WHERE id = $1 AND status = $4`,
		order.ID, models.OrderStatusPaid, paymentID, models.OrderStatusCreated)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrOrderProcessed
	}

	u, err := auth.ScanUser(tx.QueryRow(ctx, `SELECT `+auth.UserColumns+` FROM users WHERE id = $1 FOR UPDATE`, order.UserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	history, err := json.Marshal(NextHistory(u))
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}

	q := `UPDATE users SET sub_plan = $2, sub_duration_months = $3, sub_start_date = $4, sub_end_date = $5,
			sub_is_valid = $6, sub_payment_id = $7, sub_order_id = $8, subscription_history = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + auth.UserColumns
	u, err = auth.ScanUser(tx.QueryRow(ctx, q, order.UserID, sub.Plan, sub.DurationMonths, sub.StartDate, sub.EndDate,
		sub.IsValid, sub.PaymentID, sub.OrderID, history))
	if err != nil {
		return nil, fmt.Errorf("set subscription: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

// NextHistory is u's history with its current subscription, if any, appended.
func NextHistory(u *models.User) []models.Subscription {
	out := append([]models.Subscription{}, u.SubscriptionHistory...)
	if u.Subscription != nil {
		out = append(out, *u.Subscription)
	}
	return out
}
