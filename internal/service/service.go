package service

import (
	"context"
	"io"

	"shopfront/internal/model"
	"shopfront/internal/notify"
	"shopfront/internal/payment"

	"github.com/google/uuid"
)

// ProductService defines operations for the product catalogue.
type ProductService interface {
	// List retrieves a page of products, optionally within one category.
	List(ctx context.Context, q model.ProductQuery) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// OrderService defines read operations on a shopper's orders.
type OrderService interface {
	// List retrieves the user's orders newest first.
	List(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)

	// GetByNumber retrieves one of the user's orders with its items.
	GetByNumber(ctx context.Context, userID, orderNumber string) (*model.Order, error)
}

// OfferService defines offer administration.
type OfferService interface {
	Create(ctx context.Context, req model.CreateOfferRequest) (*model.Offer, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	List(ctx context.Context, limit, offset int) ([]model.Offer, error)
	Update(ctx context.Context, id uuid.UUID, req model.UpdateOfferRequest) (*model.Offer, error)

	// Delete hard-deletes an unused offer and retires one that has been redeemed.
	Delete(ctx context.Context, id uuid.UUID) (*model.OfferDeletion, error)

	// UploadImage stores a banner image for the offer, replacing any previous one.
	UploadImage(ctx context.Context, id uuid.UUID, r io.Reader, filename string) (*model.Offer, error)
}

// CartService defines operations on the caller's cart.
type CartService interface {
	Get(ctx context.Context, userID string) (*model.CartSnapshot, error)
	AddItem(ctx context.Context, userID string, req model.AddCartItemRequest) (*model.CartSnapshot, error)
}

// CheckoutService prices the caller's cart.
type CheckoutService interface {
	Quote(ctx context.Context, identity model.Identity, req model.QuoteRequest) (*model.Quote, error)
}

// ReconciliationService turns verified payment events into orders and payment records.
type ReconciliationService interface {
	// ReconcileSucceeded materialises the order for a successful payment exactly once.
	ReconcileSucceeded(ctx context.Context, event *payment.Event) (*ReconcileResult, error)

	// ReconcileFailed records a failed payment attempt.
	ReconcileFailed(ctx context.Context, event *payment.Event) (*ReconcileResult, error)
}

// DeviceService registers push notification tokens.
type DeviceService interface {
	Register(ctx context.Context, userID string, req model.RegisterDeviceRequest) (*model.DeviceToken, error)
}

// Notifier dispatches push notifications without blocking the caller.
type Notifier interface {
	Go(tokens []string, msg notify.Message)
}
