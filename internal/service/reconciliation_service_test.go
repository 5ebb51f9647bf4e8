package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"shopfront/internal/model"
	"shopfront/internal/notify"
	"shopfront/internal/payment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var reconcileNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type reconcileMocks struct {
	orders   *MockOrderRepository
	carts    *MockCartRepository
	payments *MockPaymentRepository
	offers   *MockOfferRepository
	devices  *MockDeviceRepository
	notifier *MockNotifier
	tx       *MockTx
}

func newReconcileMocks() *reconcileMocks {
	return &reconcileMocks{
		orders:   new(MockOrderRepository),
		carts:    new(MockCartRepository),
		payments: new(MockPaymentRepository),
		offers:   new(MockOfferRepository),
		devices:  new(MockDeviceRepository),
		notifier: new(MockNotifier),
		tx:       new(MockTx),
	}
}

func (m *reconcileMocks) service() ReconciliationService {
	pricing := Pricing{TaxRate: dec("0.18"), ShippingFee: dec("0"), FreeShippingAbove: dec("0"), Currency: "inr"}
	return NewReconciliationService(
		m.orders, m.carts, m.payments, m.offers, m.devices, m.notifier,
		pricing, "stripe", func() time.Time { return reconcileNow }, zerolog.Nop(),
	)
}

func (m *reconcileMocks) assertAll(t *testing.T) {
	m.orders.AssertExpectations(t)
	m.carts.AssertExpectations(t)
	m.payments.AssertExpectations(t)
	m.offers.AssertExpectations(t)
	m.devices.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
	m.tx.AssertExpectations(t)
}

func succeededEvent(metadata map[string]string) *payment.Event {
	return &payment.Event{
		ID:   "evt_1",
		Type: payment.EventPaymentSucceeded,
		Payment: payment.Payment{
			ID:       "pi_123",
			Amount:   dec("1770"),
			Currency: "inr",
			Method:   "card",
			Metadata: metadata,
		},
	}
}

func twoLineCart(cartID uuid.UUID) *model.CartSnapshot {
	return &model.CartSnapshot{
		Cart: model.Cart{ID: cartID, UserID: "user_1"},
		Lines: []model.CartLine{
			{ProductID: "P001", ProductName: "Diapers", UnitPrice: dec("500"), Quantity: 2},
			{ProductID: "P002", ProductName: "Wipes", UnitPrice: dec("250"), Quantity: 2},
		},
	}
}

func TestReconcileSucceeded_CreatesOrder(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	cartID := uuid.New()

	event := succeededEvent(map[string]string{
		model.MetaUserID:    "user_1",
		model.MetaCartID:    cartID.String(),
		model.MetaEmail:     "asha@example.com",
		model.MetaFirstName: "Asha",
		model.MetaLastName:  "Rao",
	})

	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(nil, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.carts.On("LockSnapshot", ctx, m.tx, cartID).Return(twoLineCart(cartID), nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.AnythingOfType("*model.Order")).Return(true, nil)
	m.orders.On("CreateOrderItems", ctx, m.tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	m.payments.On("Create", ctx, m.tx, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusCompleted && p.ProviderPaymentID == "pi_123" && p.OrderID != nil
	})).Return(nil)
	m.carts.On("Clear", ctx, m.tx, cartID).Return(int64(2), nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.devices.On("TokensForUser", ctx, "user_1").Return([]string{"ExponentPushToken[a]"}, nil)
	m.notifier.On("Go", []string{"ExponentPushToken[a]"}, mock.MatchedBy(func(msg notify.Message) bool {
		return msg.Title == "Order confirmed"
	})).Return()

	result, err := m.service().ReconcileSucceeded(ctx, event)
	require.NoError(t, err)
	require.NotNil(t, result.Order)

	order := result.Order
	assert.False(t, result.Duplicate)
	assert.Regexp(t, regexp.MustCompile(`^ORD-20260315-[0-9A-F]{12}$`), order.OrderNumber)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)
	assert.Equal(t, "Asha Rao", order.UserName)
	assert.Equal(t, "asha@example.com", order.UserEmail)
	assert.True(t, dec("1500").Equal(order.Subtotal))
	assert.True(t, dec("270").Equal(order.TaxAmount))
	assert.True(t, dec("1770").Equal(order.TotalAmount))
	assert.True(t, order.DiscountAmount.IsZero())
	assert.Nil(t, order.OfferID)
	require.Len(t, order.Items, 2)
	assert.True(t, dec("1000").Equal(order.Items[0].LineTotal))
	assert.Equal(t, order.ID, order.Items[1].OrderID)
	assert.Equal(t, order.ID, *result.Payment.OrderID)
	assert.True(t, m.tx.committed)
	assert.False(t, m.tx.rolledBack)

	m.assertAll(t)
}

func TestReconcileSucceeded_AppliesCheckoutMetadata(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	cartID := uuid.New()
	offerID := uuid.New()

	event := succeededEvent(map[string]string{
		model.MetaUserID:         "user_1",
		model.MetaCartID:         cartID.String(),
		model.MetaOfferID:        offerID.String(),
		model.MetaDiscountAmount: "500.00",
		model.MetaShippingAmount: "40.00",
	})

	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(nil, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.carts.On("LockSnapshot", ctx, m.tx, cartID).Return(twoLineCart(cartID), nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.AnythingOfType("*model.Order")).Return(true, nil)
	m.orders.On("CreateOrderItems", ctx, m.tx, mock.Anything).Return(nil)
	m.payments.On("Create", ctx, m.tx, mock.Anything).Return(nil)
	m.offers.On("IncrementUsage", ctx, m.tx, offerID, reconcileNow).Return(false, nil)
	m.carts.On("Clear", ctx, m.tx, cartID).Return(int64(2), nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.devices.On("TokensForUser", ctx, "user_1").Return([]string{}, nil)
	m.notifier.On("Go", []string{}, mock.Anything).Return()

	result, err := m.service().ReconcileSucceeded(ctx, event)
	require.NoError(t, err)
	m.offers.AssertNotCalled(t, "InvalidateActive", mock.Anything)

	order := result.Order
	require.NotNil(t, order.OfferID)
	assert.Equal(t, offerID, *order.OfferID)
	assert.True(t, dec("500").Equal(order.DiscountAmount))
	assert.True(t, dec("40").Equal(order.ShippingAmount))
	// 1500 + 270 + 40 - 500
	assert.True(t, dec("1310").Equal(order.TotalAmount))

	m.assertAll(t)
}

func TestReconcileSucceeded_ConsumedOfferInvalidatedAfterCommit(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	cartID := uuid.New()
	offerID := uuid.New()

	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(nil, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.carts.On("LockSnapshot", ctx, m.tx, cartID).Return(twoLineCart(cartID), nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.Anything).Return(true, nil)
	m.orders.On("CreateOrderItems", ctx, m.tx, mock.Anything).Return(nil)
	m.payments.On("Create", ctx, m.tx, mock.Anything).Return(nil)
	m.offers.On("IncrementUsage", ctx, m.tx, offerID, reconcileNow).Return(true, nil)
	m.carts.On("Clear", ctx, m.tx, cartID).Return(int64(2), nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.offers.On("InvalidateActive", ctx).Run(func(mock.Arguments) {
		assert.True(t, m.tx.committed, "active offers invalidated before commit")
	}).Return().Once()
	m.devices.On("TokensForUser", ctx, "user_1").Return([]string{}, nil)
	m.notifier.On("Go", []string{}, mock.Anything).Return()

	_, err := m.service().ReconcileSucceeded(ctx, succeededEvent(map[string]string{
		model.MetaUserID:         "user_1",
		model.MetaCartID:         cartID.String(),
		model.MetaOfferID:        offerID.String(),
		model.MetaDiscountAmount: "500",
	}))
	require.NoError(t, err)

	m.assertAll(t)
}

func TestReconcileSucceeded_ClampsDiscount(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	cartID := uuid.New()

	event := succeededEvent(map[string]string{
		model.MetaUserID:         "user_1",
		model.MetaCartID:         cartID.String(),
		model.MetaDiscountAmount: "99999",
		model.MetaOfferID:        "not-a-uuid",
	})

	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(nil, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.carts.On("LockSnapshot", ctx, m.tx, cartID).Return(twoLineCart(cartID), nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.Anything).Return(true, nil)
	m.orders.On("CreateOrderItems", ctx, m.tx, mock.Anything).Return(nil)
	m.payments.On("Create", ctx, m.tx, mock.Anything).Return(nil)
	m.carts.On("Clear", ctx, m.tx, cartID).Return(int64(2), nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.devices.On("TokensForUser", ctx, "user_1").Return(nil, errors.New("db down"))

	result, err := m.service().ReconcileSucceeded(ctx, event)
	require.NoError(t, err)

	order := result.Order
	assert.True(t, dec("1500").Equal(order.DiscountAmount))
	assert.True(t, dec("270").Equal(order.TotalAmount))
	assert.False(t, order.TotalAmount.IsNegative())
	assert.Nil(t, order.OfferID)

	m.assertAll(t)
}

func TestReconcileSucceeded_Duplicate(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	cartID := uuid.New()

	existing := &model.Order{ID: uuid.New(), OrderNumber: "ORD-20260315-ABCDEF123456", ProviderPaymentID: "pi_123"}
	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(existing, nil)

	result, err := m.service().ReconcileSucceeded(ctx, succeededEvent(map[string]string{
		model.MetaUserID: "user_1",
		model.MetaCartID: cartID.String(),
	}))

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Same(t, existing, result.Order)
	assert.Nil(t, result.Payment)

	m.assertAll(t)
}

func TestReconcileSucceeded_ConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	cartID := uuid.New()

	existing := &model.Order{ID: uuid.New(), OrderNumber: "ORD-20260315-ABCDEF123456"}
	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(nil, nil).Once()
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.carts.On("LockSnapshot", ctx, m.tx, cartID).Return(twoLineCart(cartID), nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.Anything).Return(false, nil)
	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(existing, nil).Once()
	m.tx.On("Rollback", ctx).Return(nil)

	result, err := m.service().ReconcileSucceeded(ctx, succeededEvent(map[string]string{
		model.MetaUserID: "user_1",
		model.MetaCartID: cartID.String(),
	}))

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Same(t, existing, result.Order)
	assert.True(t, m.tx.rolledBack)
	m.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	m.carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything, mock.Anything)

	m.assertAll(t)
}

func TestReconcileSucceeded_MissingAttribution(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
	}{
		{name: "no metadata", metadata: map[string]string{}},
		{name: "no user", metadata: map[string]string{model.MetaCartID: uuid.NewString()}},
		{name: "no cart", metadata: map[string]string{model.MetaUserID: "user_1"}},
		{name: "cart not a uuid", metadata: map[string]string{model.MetaUserID: "user_1", model.MetaCartID: "cart-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newReconcileMocks()

			result, err := m.service().ReconcileSucceeded(context.Background(), succeededEvent(tt.metadata))

			assert.ErrorIs(t, err, ErrMissingAttribution)
			assert.Nil(t, result)
			m.assertAll(t)
		})
	}
}

func TestReconcileSucceeded_CartGone(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *model.CartSnapshot
	}{
		{name: "cart missing", snapshot: nil},
		{name: "cart already cleared", snapshot: &model.CartSnapshot{Lines: []model.CartLine{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := newReconcileMocks()
			cartID := uuid.New()

			m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(nil, nil)
			m.orders.On("BeginTx", ctx).Return(m.tx, nil)
			if tt.snapshot == nil {
				m.carts.On("LockSnapshot", ctx, m.tx, cartID).Return(nil, nil)
			} else {
				m.carts.On("LockSnapshot", ctx, m.tx, cartID).Return(tt.snapshot, nil)
			}
			m.tx.On("Rollback", ctx).Return(nil)

			_, err := m.service().ReconcileSucceeded(ctx, succeededEvent(map[string]string{
				model.MetaUserID: "user_1",
				model.MetaCartID: cartID.String(),
			}))

			assert.ErrorIs(t, err, ErrCartNotFound)
			assert.False(t, m.tx.committed)
			m.assertAll(t)
		})
	}
}

func TestReconcileSucceeded_CartClearedByConcurrentDelivery(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	cartID := uuid.New()

	existing := &model.Order{ID: uuid.New(), OrderNumber: "ORD-20260315-0A1B2C3D4E5F", ProviderPaymentID: "pi_123"}
	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(nil, nil).Once()
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.carts.On("LockSnapshot", ctx, m.tx, cartID).Return(&model.CartSnapshot{Lines: []model.CartLine{}}, nil)
	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(existing, nil).Once()
	m.tx.On("Rollback", ctx).Return(nil)

	result, err := m.service().ReconcileSucceeded(ctx, succeededEvent(map[string]string{
		model.MetaUserID: "user_1",
		model.MetaCartID: cartID.String(),
	}))

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Same(t, existing, result.Order)
	assert.False(t, m.tx.committed)
	m.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)

	m.assertAll(t)
}

func TestReconcileSucceeded_PersistenceFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	cartID := uuid.New()
	dbErr := errors.New("connection reset")

	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(nil, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.carts.On("LockSnapshot", ctx, m.tx, cartID).Return(twoLineCart(cartID), nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.Anything).Return(true, nil)
	m.orders.On("CreateOrderItems", ctx, m.tx, mock.Anything).Return(nil)
	m.payments.On("Create", ctx, m.tx, mock.Anything).Return(dbErr)
	m.tx.On("Rollback", ctx).Return(nil)

	result, err := m.service().ReconcileSucceeded(ctx, succeededEvent(map[string]string{
		model.MetaUserID: "user_1",
		model.MetaCartID: cartID.String(),
	}))

	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, result)
	assert.True(t, m.tx.rolledBack)
	assert.False(t, m.tx.committed)
	m.carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything, mock.Anything)
	m.notifier.AssertNotCalled(t, "Go", mock.Anything, mock.Anything)

	m.assertAll(t)
}

func TestReconcileSucceeded_CommitFailure(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	cartID := uuid.New()

	m.orders.On("GetByProviderPaymentID", ctx, "pi_123").Return(nil, nil)
	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.carts.On("LockSnapshot", ctx, m.tx, cartID).Return(twoLineCart(cartID), nil)
	m.orders.On("CreateOrder", ctx, m.tx, mock.Anything).Return(true, nil)
	m.orders.On("CreateOrderItems", ctx, m.tx, mock.Anything).Return(nil)
	m.payments.On("Create", ctx, m.tx, mock.Anything).Return(nil)
	m.carts.On("Clear", ctx, m.tx, cartID).Return(int64(2), nil)
	m.tx.On("Commit", ctx).Return(errors.New("serialization failure"))
	m.tx.On("Rollback", ctx).Return(pgx.ErrTxClosed)

	_, err := m.service().ReconcileSucceeded(ctx, succeededEvent(map[string]string{
		model.MetaUserID: "user_1",
		model.MetaCartID: cartID.String(),
	}))

	require.Error(t, err)
	m.notifier.AssertNotCalled(t, "Go", mock.Anything, mock.Anything)
	m.assertAll(t)
}

func failedEvent(metadata map[string]string, reason string) *payment.Event {
	return &payment.Event{
		ID:   "evt_2",
		Type: payment.EventPaymentFailed,
		Payment: payment.Payment{
			ID:             "pi_456",
			Amount:         dec("1770"),
			Currency:       "inr",
			Method:         "card",
			Metadata:       metadata,
			FailureMessage: reason,
		},
	}
}

func TestReconcileFailed_RecordsPayment(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()

	m.payments.On("Record", ctx, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusFailed &&
			p.FailureReason != nil && *p.FailureReason == "Your card was declined." &&
			p.OrderID == nil && p.UserID == "user_1"
	})).Return(true, nil)

	result, err := m.service().ReconcileFailed(ctx, failedEvent(map[string]string{model.MetaUserID: "user_1"}, "Your card was declined."))

	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Nil(t, result.Order)
	require.NotNil(t, result.Payment)
	assert.Equal(t, reconcileNow, result.Payment.ProcessedAt)

	m.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	m.assertAll(t)
}

func TestReconcileFailed_AttachesExistingOrder(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	order := &model.Order{ID: uuid.New()}

	m.orders.On("GetByID", ctx, order.ID).Return(order, nil)
	m.payments.On("Record", ctx, mock.MatchedBy(func(p *model.Payment) bool {
		return p.OrderID != nil && *p.OrderID == order.ID && *p.FailureReason == "Payment failed"
	})).Return(true, nil)

	result, err := m.service().ReconcileFailed(ctx, failedEvent(map[string]string{
		model.MetaUserID:  "user_1",
		model.MetaOrderID: order.ID.String(),
	}, ""))

	require.NoError(t, err)
	assert.Same(t, order, result.Order)
	m.assertAll(t)
}

func TestReconcileFailed_UnknownOrderNotAttached(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()
	orderID := uuid.New()

	m.orders.On("GetByID", ctx, orderID).Return(nil, nil)
	m.payments.On("Record", ctx, mock.MatchedBy(func(p *model.Payment) bool {
		return p.OrderID == nil
	})).Return(true, nil)

	_, err := m.service().ReconcileFailed(ctx, failedEvent(map[string]string{
		model.MetaUserID:  "user_1",
		model.MetaOrderID: orderID.String(),
	}, "declined"))

	require.NoError(t, err)
	m.assertAll(t)
}

func TestReconcileFailed_Duplicate(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()

	m.payments.On("Record", ctx, mock.Anything).Return(false, nil)

	result, err := m.service().ReconcileFailed(ctx, failedEvent(map[string]string{model.MetaUserID: "user_1"}, "declined"))

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Nil(t, result.Payment)
	m.assertAll(t)
}

func TestReconcileFailed_NoUserSkipped(t *testing.T) {
	m := newReconcileMocks()

	_, err := m.service().ReconcileFailed(context.Background(), failedEvent(map[string]string{}, "declined"))

	assert.ErrorIs(t, err, ErrMissingAttribution)
	m.assertAll(t)
}

func TestReconcileFailed_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	m := newReconcileMocks()

	m.payments.On("Record", ctx, mock.Anything).Return(false, errors.New("connection reset"))

	_, err := m.service().ReconcileFailed(ctx, failedEvent(map[string]string{model.MetaUserID: "user_1"}, "declined"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingAttribution)
	m.assertAll(t)
}

func TestNewOrderNumber_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		n := newOrderNumber(reconcileNow)
		assert.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
	}
}
