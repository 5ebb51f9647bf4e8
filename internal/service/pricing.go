package service

import (
	"shopfront/internal/config"

	"github.com/shopspring/decimal"
)

// Pricing applies the store's shipping and tax policy.
type Pricing struct {
	TaxRate           decimal.Decimal
	ShippingFee       decimal.Decimal
	FreeShippingAbove decimal.Decimal
	Currency          string
}

// NewPricing builds the pricing policy from configuration.
func NewPricing(cfg config.CheckoutConfig) Pricing {
	return Pricing{
		TaxRate:           cfg.TaxRate,
		ShippingFee:       cfg.ShippingFee,
		FreeShippingAbove: cfg.FreeShippingAbove,
		Currency:          cfg.Currency,
	}
}

// Totals is a fully priced order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Shipping returns the shipping charge for subtotal. A zero threshold means
// the flat fee always applies.
func (p Pricing) Shipping(subtotal decimal.Decimal, freeShipping bool) decimal.Decimal {
	if freeShipping {
		return decimal.Zero
	}
	if p.FreeShippingAbove.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingAbove) {
		return decimal.Zero
	}
	return p.ShippingFee
}

// Tax is the flat rate applied to the subtotal, rounded to minor units.
func (p Pricing) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.TaxRate).Round(2)
}

// Compute prices an order. The discount is clamped to [0, subtotal+shipping]
// so the total is never negative.
func (p Pricing) Compute(subtotal, shipping, discount decimal.Decimal) Totals {
	if shipping.IsNegative() {
		shipping = decimal.Zero
	}

	ceiling := subtotal.Add(shipping)
	switch {
	case discount.IsNegative():
		discount = decimal.Zero
	case discount.GreaterThan(ceiling):
		discount = ceiling
	}

	tax := p.Tax(subtotal)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(tax).Add(shipping).Sub(discount),
	}
}
