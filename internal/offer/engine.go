package offer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type engine struct {
	store  Store
	now    Clock
	logger zerolog.Logger
}

// NewEngine creates an offer engine. A nil clock uses time.Now.
func NewEngine(store Store, clock Clock, logger zerolog.Logger) Engine {
	if clock == nil {
		clock = time.Now
	}
	return &engine{
		store:  store,
		now:    clock,
		logger: logger.With().Str("component", "offer-engine").Logger(),
	}
}

// ValidateDiscountCode runs the checks in a fixed order so that the reported
// reason is deterministic: existence, active flag, window start, window end,
// usage cap, minimum order.
func (e *engine) ValidateDiscountCode(ctx context.Context, code string, orderAmount decimal.Decimal) (*model.OfferValidation, error) {
	if strings.TrimSpace(code) == "" {
		return nil, model.InvalidInput("Discount code is required")
	}
	// Codes match exactly, so surrounding whitespace can never match.
	if code != strings.TrimSpace(code) {
		return nil, model.InvalidInput("Discount code must not contain leading or trailing spaces")
	}
	if !orderAmount.IsPositive() {
		return nil, model.InvalidInput("Order amount must be greater than zero")
	}

	offer, err := e.store.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up discount code: %w", err)
	}
	if offer == nil {
		e.logger.Debug().Str("code", code).Msg("discount code not found")
		return nil, model.ErrOfferNotFound
	}

	if err := Check(offer, e.now(), orderAmount); err != nil {
		e.logger.Debug().
			Str("code", code).
			Str("offer_id", offer.ID.String()).
			Err(err).
			Msg("discount code rejected")
		return nil, err
	}

	amount, freeShipping := Discount(offer, orderAmount)

	return &model.OfferValidation{
		ID:             offer.ID,
		Title:          offer.Title,
		Code:           offer.Code,
		DiscountType:   offer.DiscountType,
		DiscountValue:  offer.DiscountValue,
		DiscountAmount: amount,
		FreeShipping:   freeShipping,
		MinOrderAmount: offer.MinOrderAmount,
	}, nil
}

// ActiveOffers lists offers usable now, highest priority first.
func (e *engine) ActiveOffers(ctx context.Context, kind *model.OfferKind, position *string) ([]model.Offer, error) {
	if kind != nil && !kind.Valid() {
		return nil, model.InvalidInput(fmt.Sprintf("Unknown offer type %q", *kind))
	}

	offers, err := e.store.ListActive(ctx, model.ActiveOfferFilter{Kind: kind, Position: position}, e.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list active offers: %w", err)
	}
	return offers, nil
}

// Check reports why offer cannot be redeemed at now for orderAmount, or nil.
func Check(offer *model.Offer, now time.Time, orderAmount decimal.Decimal) error {
	if !offer.IsActive {
		return model.ErrOfferInactive
	}
	if now.Before(offer.StartDate) {
		return model.ErrOfferNotStarted
	}
	if offer.EndDate != nil && now.After(*offer.EndDate) {
		return model.ErrOfferExpired
	}
	if offer.MaxUses != nil && offer.UsedCount >= *offer.MaxUses {
		return model.ErrOfferUsageLimit
	}
	if offer.MinOrderAmount != nil && orderAmount.LessThan(*offer.MinOrderAmount) {
		minimum := *offer.MinOrderAmount
		shortfall := minimum.Sub(orderAmount)
		message := fmt.Sprintf("Minimum order amount of %s required for this code, add %s more",
			minimum.StringFixed(2), shortfall.StringFixed(2))
		return &model.DomainError{
			Code:    model.ErrCodeOfferMinimumOrder,
			Message: message,
			Details: map[string]any{
				"minOrderAmount": minimum,
				"shortfall":      shortfall,
			},
		}
	}
	return nil
}

// Discount computes the reduction offer grants on orderAmount. The amount never
// exceeds orderAmount. Free shipping yields a zero amount and the flag set.
func Discount(offer *model.Offer, orderAmount decimal.Decimal) (decimal.Decimal, bool) {
	switch offer.DiscountType {
	case model.DiscountPercentage:
		amount := orderAmount.Mul(offer.DiscountValue).Div(hundred).Round(2)
		return decimal.Min(amount, orderAmount), false
	case model.DiscountFixedAmount:
		return decimal.Min(offer.DiscountValue, orderAmount), false
	case model.DiscountFreeShipping:
		return decimal.Zero, true
	}
	return decimal.Zero, false
}
