package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopfront/internal/model"
	"shopfront/internal/notify"
	"shopfront/internal/payment"
	"shopfront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Skip-class reconciliation errors. Events failing with these are acknowledged
// and never retried; any other error is a persistence failure and should be.
var (
	ErrMissingAttribution = errors.New("payment event is not attributable to a cart checkout")
	ErrCartNotFound       = errors.New("cart not found or already cleared")
)

// ReconcileResult describes what a payment event produced.
type ReconcileResult struct {
	Order     *model.Order
	Payment   *model.Payment
	Duplicate bool
}

type reconciliationService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	paymentRepo repository.PaymentRepository
	offerRepo   repository.OfferRepository
	deviceRepo  repository.DeviceRepository
	notifier    Notifier
	pricing     Pricing
	provider    string
	now         func() time.Time
	logger      zerolog.Logger
}

// NewReconciliationService creates a new reconciliation service. A nil clock
// uses time.Now.
func NewReconciliationService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	paymentRepo repository.PaymentRepository,
	offerRepo repository.OfferRepository,
	deviceRepo repository.DeviceRepository,
	notifier Notifier,
	pricing Pricing,
	provider string,
	clock func() time.Time,
	logger zerolog.Logger,
) ReconciliationService {
	if clock == nil {
		clock = time.Now
	}
	return &reconciliationService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		paymentRepo: paymentRepo,
		offerRepo:   offerRepo,
		deviceRepo:  deviceRepo,
		notifier:    notifier,
		pricing:     pricing,
		provider:    provider,
		now:         clock,
		logger:      logger.With().Str("service", "reconciliation").Logger(),
	}
}

// newOrderNumber returns ORD-YYYYMMDD-XXXXXXXXXXXX with 48 random bits.
func newOrderNumber(now time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), random)
}

// ReconcileSucceeded materialises the order, its items and the COMPLETED
// payment, consumes the offer use and empties the cart in one transaction.
func (s *reconciliationService) ReconcileSucceeded(ctx context.Context, event *payment.Event) (*ReconcileResult, error) {
	p := event.Payment
	log := s.logger.With().Str("event_id", event.ID).Str("provider_payment_id", p.ID).Logger()

	userID := p.Meta(model.MetaUserID)
	cartID, err := uuid.Parse(p.Meta(model.MetaCartID))
	if userID == "" || err != nil {
		log.Warn().Msg("payment event without cart attribution skipped")
		return nil, ErrMissingAttribution
	}

	existing, err := s.orderRepo.GetByProviderPaymentID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing order: %w", err)
	}
	if existing != nil {
		log.Info().Str("order_number", existing.OrderNumber).Msg("duplicate payment event ignored")
		return &ReconcileResult{Order: existing, Duplicate: true}, nil
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	snapshot, err := s.cartRepo.LockSnapshot(ctx, tx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if snapshot == nil || len(snapshot.Lines) == 0 {
		// A concurrent delivery may have held the cart lock and already emptied it.
		existing, err := s.orderRepo.GetByProviderPaymentID(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check for existing order: %w", err)
		}
		if existing != nil {
			log.Info().Str("order_number", existing.OrderNumber).Msg("duplicate payment event ignored")
			return &ReconcileResult{Order: existing, Duplicate: true}, nil
		}
		log.Warn().Str("cart_id", cartID.String()).Msg("cart missing or empty, payment event skipped")
		return nil, ErrCartNotFound
	}

	now := s.now()
	subtotal := snapshot.Subtotal()
	totals := s.pricing.Compute(
		subtotal,
		s.metaAmount(log, p, model.MetaShippingAmount),
		s.metaAmount(log, p, model.MetaDiscountAmount),
	)

	order := &model.Order{
		ID:                uuid.New(),
		OrderNumber:       newOrderNumber(now),
		UserID:            userID,
		UserEmail:         p.Meta(model.MetaEmail),
		UserName:          model.Identity{FirstName: p.Meta(model.MetaFirstName), LastName: p.Meta(model.MetaLastName)}.FullName(),
		Status:            model.OrderStatusConfirmed,
		Subtotal:          totals.Subtotal,
		TaxAmount:         totals.Tax,
		ShippingAmount:    totals.Shipping,
		DiscountAmount:    totals.Discount,
		TotalAmount:       totals.Total,
		OfferID:           s.metaOfferID(log, p),
		ProviderPaymentID: p.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	created, err := s.orderRepo.CreateOrder(ctx, tx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}
	if !created {
		// A concurrent delivery of the same event won the insert.
		existing, err := s.orderRepo.GetByProviderPaymentID(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing order: %w", err)
		}
		log.Info().Msg("duplicate payment event ignored")
		return &ReconcileResult{Order: existing, Duplicate: true}, nil
	}

	order.Items = make([]model.OrderItem, len(snapshot.Lines))
	for i, line := range snapshot.Lines {
		order.Items[i] = model.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal(),
		}
	}

	if err := s.orderRepo.CreateOrderItems(ctx, tx, order.Items); err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}

	paid := &model.Payment{
		ID:                uuid.New(),
		OrderID:           &order.ID,
		UserID:            userID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            model.PaymentStatusCompleted,
		Method:            p.Method,
		Provider:          s.provider,
		ProviderPaymentID: p.ID,
		ProcessedAt:       now,
	}

	if err := s.paymentRepo.Create(ctx, tx, paid); err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}

	consumed := false
	if order.OfferID != nil {
		consumed, err = s.offerRepo.IncrementUsage(ctx, tx, *order.OfferID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile payment: %w", err)
		}
		if !consumed {
			log.Warn().
				Str("offer_id", order.OfferID.String()).
				Msg("offer usage cap reached after payment, order kept with quoted discount")
		}
	}

	if _, err := s.cartRepo.Clear(ctx, tx, cartID); err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation: %w", err)
	}
	committed = true

	if consumed {
		s.offerRepo.InvalidateActive(ctx)
	}

	if !p.Amount.Equal(order.TotalAmount) {
		log.Warn().
			Str("paid", p.Amount.String()).
			Str("total", order.TotalAmount.String()).
			Msg("paid amount differs from reconciled total")
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Int("item_count", len(order.Items)).
		Msg("order materialised from payment")

	s.notifyBuyer(ctx, log, order)

	return &ReconcileResult{Order: order, Payment: paid}, nil
}

// ReconcileFailed records a FAILED payment. It attaches the payment to an
// order only when the metadata names one that exists.
func (s *reconciliationService) ReconcileFailed(ctx context.Context, event *payment.Event) (*ReconcileResult, error) {
	p := event.Payment
	log := s.logger.With().Str("event_id", event.ID).Str("provider_payment_id", p.ID).Logger()

	userID := p.Meta(model.MetaUserID)
	if userID == "" {
		log.Warn().Msg("failed payment without user skipped")
		return nil, ErrMissingAttribution
	}

	var order *model.Order
	if orderID, err := uuid.Parse(p.Meta(model.MetaOrderID)); err == nil {
		order, err = s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up order: %w", err)
		}
	}

	reason := strings.TrimSpace(p.FailureMessage)
	if reason == "" {
		reason = "Payment failed"
	}

	failed := &model.Payment{
		ID:                uuid.New(),
		UserID:            userID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            model.PaymentStatusFailed,
		Method:            p.Method,
		Provider:          s.provider,
		ProviderPaymentID: p.ID,
		FailureReason:     &reason,
		ProcessedAt:       s.now(),
	}
	if order != nil {
		failed.OrderID = &order.ID
	}

	recorded, err := s.paymentRepo.Record(ctx, failed)
	if err != nil {
		return nil, fmt.Errorf("failed to record failed payment: %w", err)
	}

	if !recorded {
		log.Info().Msg("duplicate failed payment event ignored")
		return &ReconcileResult{Order: order, Duplicate: true}, nil
	}

	log.Info().Str("reason", reason).Msg("failed payment recorded")
	return &ReconcileResult{Order: order, Payment: failed}, nil
}

func (s *reconciliationService) metaAmount(log zerolog.Logger, p payment.Payment, key string) decimal.Decimal {
	raw := p.Meta(key)
	if raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || amount.IsNegative() {
		log.Warn().Str("key", key).Str("value", raw).Msg("ignoring invalid amount in payment metadata")
		return decimal.Zero
	}
	return amount
}

func (s *reconciliationService) metaOfferID(log zerolog.Logger, p payment.Payment) *uuid.UUID {
	raw := p.Meta(model.MetaOfferID)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Warn().Str("value", raw).Msg("ignoring invalid offer id in payment metadata")
		return nil
	}
	return &id
}

func (s *reconciliationService) notifyBuyer(ctx context.Context, log zerolog.Logger, order *model.Order) {
	if s.notifier == nil {
		return
	}

	tokens, err := s.deviceRepo.TokensForUser(ctx, order.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("could not load device tokens for order confirmation")
		return
	}

	s.notifier.Go(tokens, notify.Message{
		Title: "Order confirmed",
		Body:  fmt.Sprintf("Your order %s has been placed. Total: %s", order.OrderNumber, order.TotalAmount.StringFixed(2)),
		Data: map[string]any{
			"type":        "order_created",
			"orderNumber": order.OrderNumber,
		},
	})
}
