package service

import (
	"context"
	"fmt"
	"strings"

	"shopfront/internal/model"
	"shopfront/internal/offer"
	"shopfront/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type checkoutService struct {
	cartRepo repository.CartRepository
	engine   offer.Engine
	pricing  Pricing
	logger   zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(cartRepo repository.CartRepository, engine offer.Engine, pricing Pricing, logger zerolog.Logger) CheckoutService {
	return &checkoutService{
		cartRepo: cartRepo,
		engine:   engine,
		pricing:  pricing,
		logger:   logger.With().Str("service", "checkout").Logger(),
	}
}

// Quote prices the caller's cart with an optional discount code. The returned
// metadata must be attached to the processor payment so the payment event can
// be reconciled against this cart and these amounts.
func (s *checkoutService) Quote(ctx context.Context, identity model.Identity, req model.QuoteRequest) (*model.Quote, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	snapshot, err := s.cartRepo.Snapshot(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if snapshot == nil || len(snapshot.Lines) == 0 {
		return nil, model.ErrEmptyCart
	}

	subtotal := snapshot.Subtotal()

	var validation *model.OfferValidation
	discount := decimal.Zero
	if req.Code != nil && strings.TrimSpace(*req.Code) != "" {
		validation, err = s.engine.ValidateDiscountCode(ctx, *req.Code, subtotal)
		if err != nil {
			return nil, err
		}
		discount = validation.DiscountAmount
	}

	freeShipping := validation != nil && validation.FreeShipping
	totals := s.pricing.Compute(subtotal, s.pricing.Shipping(subtotal, freeShipping), discount)

	metadata := map[string]string{
		model.MetaUserID:         identity.UserID,
		model.MetaCartID:         cart.ID.String(),
		model.MetaEmail:          identity.Email,
		model.MetaFirstName:      identity.FirstName,
		model.MetaLastName:       identity.LastName,
		model.MetaDiscountAmount: totals.Discount.StringFixed(2),
		model.MetaShippingAmount: totals.Shipping.StringFixed(2),
	}
	if validation != nil {
		metadata[model.MetaOfferID] = validation.ID.String()
	}

	s.logger.Debug().
		Str("cart_id", cart.ID.String()).
		Str("subtotal", subtotal.String()).
		Str("total", totals.Total.String()).
		Msg("checkout quoted")

	return &model.Quote{
		CartID:         cart.ID,
		Lines:          snapshot.Lines,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.Discount,
		ShippingAmount: totals.Shipping,
		TaxAmount:      totals.Tax,
		TotalAmount:    totals.Total,
		Offer:          validation,
		Metadata:       metadata,
	}, nil
}
