package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfferKind controls where an offer surfaces: as a redeemable code, a banner, or both.
type OfferKind string

const (
	OfferKindDiscountCode OfferKind = "DISCOUNT_CODE"
	OfferKindBanner       OfferKind = "BANNER"
	OfferKindBoth         OfferKind = "BOTH"
)

// Valid reports whether k is a known offer kind.
func (k OfferKind) Valid() bool {
	switch k {
	case OfferKindDiscountCode, OfferKindBanner, OfferKindBoth:
		return true
	}
	return false
}

// DiscountType is the way an offer reduces the price of an order.
type DiscountType string

const (
	DiscountPercentage   DiscountType = "PERCENTAGE"
	DiscountFixedAmount  DiscountType = "FIXED_AMOUNT"
	DiscountFreeShipping DiscountType = "FREE_SHIPPING"
)

// Valid reports whether d is a known discount type.
func (d DiscountType) Valid() bool {
	switch d {
	case DiscountPercentage, DiscountFixedAmount, DiscountFreeShipping:
		return true
	}
	return false
}

// Offer is a promotion configured by an administrator.
type Offer struct {
	ID             uuid.UUID        `json:"id"`
	Code           *string          `json:"code,omitempty"`
	Title          string           `json:"title"`
	Description    *string          `json:"description,omitempty"`
	Kind           OfferKind        `json:"type"`
	DiscountType   DiscountType     `json:"discountType"`
	DiscountValue  decimal.Decimal  `json:"discountValue"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount,omitempty"`
	MaxUses        *int             `json:"maxUses,omitempty"`
	UsedCount      int              `json:"usedCount"`
	StartDate      time.Time        `json:"startDate"`
	EndDate        *time.Time       `json:"endDate,omitempty"`
	Priority       int              `json:"priority"`
	Position       *string          `json:"position,omitempty"`
	ImageURL       *string          `json:"imageUrl,omitempty"`
	ImagePublicID  *string          `json:"-"`
	IsActive       bool             `json:"isActive"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// UsableAt reports whether the offer can be redeemed at the given instant.
func (o *Offer) UsableAt(now time.Time) bool {
	if !o.IsActive || now.Before(o.StartDate) {
		return false
	}
	if o.EndDate != nil && now.After(*o.EndDate) {
		return false
	}
	if o.MaxUses != nil && o.UsedCount >= *o.MaxUses {
		return false
	}
	return true
}

// ActiveOfferFilter narrows the banner listing.
type ActiveOfferFilter struct {
	Kind     *OfferKind
	Position *string
}

// OfferValidation is the outcome of a successful discount code check.
type OfferValidation struct {
	ID             uuid.UUID        `json:"id"`
	Title          string           `json:"title"`
	Code           *string          `json:"code,omitempty"`
	DiscountType   DiscountType     `json:"discountType"`
	DiscountValue  decimal.Decimal  `json:"discountValue"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	FreeShipping   bool             `json:"freeShipping"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount,omitempty"`
}

// ValidateCodeRequest is the public discount check payload.
type ValidateCodeRequest struct {
	Code        string          `json:"code" validate:"required,max=64"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

// ValidateCodeResponse wraps a successful validation.
type ValidateCodeResponse struct {
	Valid bool             `json:"valid"`
	Offer *OfferValidation `json:"offer"`
}

// CreateOfferRequest is the admin payload for a new offer.
type CreateOfferRequest struct {
	Title          string           `json:"title" validate:"required,max=200"`
	Description    *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Code           *string          `json:"code,omitempty" validate:"omitempty,min=1,max=64"`
	Kind           OfferKind        `json:"type" validate:"required,oneof=DISCOUNT_CODE BANNER BOTH"`
	DiscountType   DiscountType     `json:"discountType" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING"`
	DiscountValue  *decimal.Decimal `json:"discountValue" validate:"required"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount,omitempty"`
	MaxUses        *int             `json:"maxUses,omitempty" validate:"omitempty,min=0"`
	StartDate      *time.Time       `json:"startDate" validate:"required"`
	EndDate        *time.Time       `json:"endDate,omitempty"`
	Priority       int              `json:"priority"`
	Position       *string          `json:"position,omitempty" validate:"omitempty,max=64"`
	IsActive       *bool            `json:"isActive,omitempty"`
	NotifyUsers    bool             `json:"notifyUsers"`
}

// Nullable offer fields an update can reset through UpdateOfferRequest.Clear.
const (
	OfferFieldCode           = "code"
	OfferFieldDescription    = "description"
	OfferFieldMinOrderAmount = "minOrderAmount"
	OfferFieldMaxUses        = "maxUses"
	OfferFieldEndDate        = "endDate"
	OfferFieldPosition       = "position"
)

// UpdateOfferRequest is a partial update; nil fields are left untouched.
// Clear lists nullable fields to reset to null, and a field may not be both
// set and cleared.
type UpdateOfferRequest struct {
	Title          *string          `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description    *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Code           *string          `json:"code,omitempty" validate:"omitempty,min=1,max=64"`
	Kind           *OfferKind       `json:"type,omitempty" validate:"omitempty,oneof=DISCOUNT_CODE BANNER BOTH"`
	DiscountType   *DiscountType    `json:"discountType,omitempty" validate:"omitempty,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING"`
	DiscountValue  *decimal.Decimal `json:"discountValue,omitempty"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount,omitempty"`
	MaxUses        *int             `json:"maxUses,omitempty" validate:"omitempty,min=0"`
	StartDate      *time.Time       `json:"startDate,omitempty"`
	EndDate        *time.Time       `json:"endDate,omitempty"`
	Priority       *int             `json:"priority,omitempty"`
	Position       *string          `json:"position,omitempty" validate:"omitempty,max=64"`
	IsActive       *bool            `json:"isActive,omitempty"`
	Clear          []string         `json:"clear,omitempty" validate:"omitempty,dive,oneof=code description minOrderAmount maxUses endDate position"`
}

// OfferDeletion reports how an offer was removed.
type OfferDeletion struct {
	ID      uuid.UUID `json:"id"`
	Retired bool      `json:"retired"`
}
