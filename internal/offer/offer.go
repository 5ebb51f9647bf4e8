// Package offer validates discount codes, computes discounts and lists the
// offers currently eligible for banner display. It also imports offer
// definitions in bulk from gzipped JSON-lines files.
package offer

import (
	"context"
	"time"

	"shopfront/internal/model"

	"github.com/shopspring/decimal"
)

// Engine defines the discount code operations used by checkout and the public API.
type Engine interface {
	// ValidateDiscountCode checks code against orderAmount and computes the
	// discount. It never consumes a use of the offer.
	ValidateDiscountCode(ctx context.Context, code string, orderAmount decimal.Decimal) (*model.OfferValidation, error)

	// ActiveOffers lists offers usable now, optionally narrowed by kind and position.
	ActiveOffers(ctx context.Context, kind *model.OfferKind, position *string) ([]model.Offer, error)
}

// Store is the read access the engine needs to offer records.
type Store interface {
	GetByCode(ctx context.Context, code string) (*model.Offer, error)
	ListActive(ctx context.Context, filter model.ActiveOfferFilter, now time.Time) ([]model.Offer, error)
}

// Clock returns the current time.
type Clock func() time.Time

// Loader defines the interface for loading offer definition files.
type Loader interface {
	// Load reads a gzipped JSON-lines file with one offer definition per line.
	Load(ctx context.Context, path string) ([]model.CreateOfferRequest, error)
}

// CodeSet records offer codes seen during an import.
type CodeSet interface {
	// Add inserts code, reporting false if it was already present.
	Add(code string) bool
}
