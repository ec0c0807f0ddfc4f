package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/models"
)

type memStore struct {
	users  map[uuid.UUID]*models.User
	orders map[string]*models.Order
}

func newMemStore(userIDs ...uuid.UUID) *memStore {
	m := &memStore{users: map[uuid.UUID]*models.User{}, orders: map[string]*models.Order{}}
	for _, id := range userIDs {
		m.users[id] = &models.User{ID: id}
	}
	return m
}

func (m *memStore) CreateOrder(_ context.Context, o *models.Order) (*models.Order, error) {
	o.ID = uuid.New()
	o.Status = models.OrderStatusCreated
	m.orders[o.ProviderOrderID] = o
	return o, nil
}

func (m *memStore) GetOrder(_ context.Context, userID uuid.UUID, id string) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.UserID != userID {
		return nil, apperr.NotFound("order")
	}
	return o, nil
}

func (m *memStore) MarkFailed(_ context.Context, orderID uuid.UUID) error {
	for _, o := range m.orders {
		if o.ID == orderID {
			o.Status = models.OrderStatusFailed
		}
	}
	return nil
}

func (m *memStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

func (m *memStore) Activate(_ context.Context, o *models.Order, paymentID string, sub models.Subscription) (*models.User, error) {
	if o.Status != models.OrderStatusCreated {
		return nil, ErrOrderProcessed
	}
	o.Status = models.OrderStatusPaid
	o.ProviderPaymentID = paymentID
	u := m.users[o.UserID]
	u.SubscriptionHistory = NextHistory(u)
	u.Subscription = &sub
	return u, nil
}

var fixedNow = time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)

func newTestService(store Store) *Service {
	svc := NewService(store, NewGateway("key_test", "shh"), map[int]int64{1: 49900, 12: 449900}, "INR", nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestGatewaySignature(t *testing.T) {
	g := NewGateway("k", "secret")
	sig := g.Sign("order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.True(t, g.Verify("order_1", "pay_1", sig))
	assert.False(t, g.Verify("order_1", "pay_2", sig))
	assert.False(t, NewGateway("k", "").Verify("order_1", "pay_1", sig))

	a, err := g.NewOrderID()
	require.NoError(t, err)
	b, err := g.NewOrderID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOrderAndVerifyActivatesPlan(t *testing.T) {
	userID := uuid.New()
	store := newMemStore(userID)
	svc := newTestService(store)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, userID, OrderRequest{DurationMonths: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(49900), order.Amount)
	assert.Equal(t, "key_test", order.KeyID)

	sig := svc.gateway.Sign(order.OrderID, "pay_1")
	st, err := svc.Verify(ctx, userID, VerifyRequest{OrderID: order.OrderID, PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)
	require.NotNil(t, st.Subscription)
	assert.True(t, st.Active)
	assert.Equal(t, fixedNow, st.Subscription.StartDate)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), st.Subscription.EndDate, "AddDate normalizes Feb 31")
	assert.Empty(t, st.History)

	_, err = svc.Verify(ctx, userID, VerifyRequest{OrderID: order.OrderID, PaymentID: "pay_1", Signature: sig})
	assert.ErrorIs(t, err, ErrOrderProcessed)

	renewal, err := svc.CreateOrder(ctx, userID, OrderRequest{DurationMonths: 12})
	require.NoError(t, err)
	st, err = svc.Verify(ctx, userID, VerifyRequest{
		OrderID: renewal.OrderID, PaymentID: "pay_2", Signature: svc.gateway.Sign(renewal.OrderID, "pay_2"),
	})
	require.NoError(t, err)
	assert.Equal(t, 12, st.Subscription.DurationMonths)
	require.Len(t, st.History, 1)
	assert.Equal(t, "pay_1", st.History[0].PaymentID)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	userID := uuid.New()
	store := newMemStore(userID)
	svc := newTestService(store)

	order, err := svc.CreateOrder(context.Background(), userID, OrderRequest{DurationMonths: 12})
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), userID, VerifyRequest{OrderID: order.OrderID, PaymentID: "p", Signature: "forged"})
	assert.True(t, apperr.Is(err, apperr.Validation))
	assert.Equal(t, models.OrderStatusFailed, store.orders[order.OrderID].Status)
	assert.Nil(t, store.users[userID].Subscription)

	_, err = svc.Verify(context.Background(), uuid.New(), VerifyRequest{OrderID: order.OrderID, PaymentID: "p", Signature: "x"})
	assert.True(t, apperr.Is(err, apperr.NotFoundOrUnauthorized), "orders are scoped to their user")
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.CreateOrder(context.Background(), uuid.New(), OrderRequest{DurationMonths: 5})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Validation, e.Kind)
	assert.Equal(t, []int{1, 12}, e.Details["available"])

	unconfigured := NewService(newMemStore(), NewGateway("", ""), map[int]int64{1: 1}, "INR", nil)
	_, err = unconfigured.CreateOrder(context.Background(), uuid.New(), OrderRequest{DurationMonths: 1})
	assert.True(t, apperr.Is(err, apperr.Misconfigured))
}

func TestVerifyListsMissingFields(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.Verify(context.Background(), uuid.New(), VerifyRequest{PaymentID: "p"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"orderId", "signature"}, e.Details["missing"])

	_, err = svc.CreateOrder(context.Background(), uuid.New(), OrderRequest{})
	e, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"durationMonths"}, e.Details["missing"])
}

func TestCurrentWithoutSubscription(t *testing.T) {
	userID := uuid.New()
	st, err := newTestService(newMemStore(userID)).Current(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, st.Subscription)
	assert.False(t, st.Active)
	assert.NotNil(t, st.History)
}
