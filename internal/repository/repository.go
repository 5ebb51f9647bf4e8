package repository

import (
	"context"
	"errors"
	"time"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List returns a page of the catalogue.
	List(ctx context.Context, q model.ProductQuery) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// OfferRepository defines the interface for offer data access operations.
type OfferRepository interface {
	// GetByCode retrieves an offer by exact, case-sensitive code.
	GetByCode(ctx context.Context, code string) (*model.Offer, error)

	// GetByID retrieves an offer by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error)

	// List retrieves offers newest first.
	List(ctx context.Context, limit, offset int) ([]model.Offer, error)

	// ListActive retrieves offers usable at now, highest priority first.
	ListActive(ctx context.Context, filter model.ActiveOfferFilter, now time.Time) ([]model.Offer, error)

	// Create inserts a new offer. A duplicate code yields model.ErrOfferCodeConflict.
	Create(ctx context.Context, offer *model.Offer) error

	// Update persists every mutable field of the offer.
	Update(ctx context.Context, offer *model.Offer) error

	// Delete removes the offer row.
	Delete(ctx context.Context, id uuid.UUID) error

	// Retire deactivates the offer and closes its window at now.
	Retire(ctx context.Context, id uuid.UUID, now time.Time) error

	// IncrementUsage consumes one use of the offer inside tx. It reports false
	// when the offer is missing or its cap is already reached.
	IncrementUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) (bool, error)

	// InvalidateActive drops any cached ListActive results. Call it after
	// committing a transaction that consumed offer uses.
	InvalidateActive(ctx context.Context)
}

// CartRepository defines the interface for cart data access operations.
type CartRepository interface {
	// GetOrCreate returns the user's cart, creating it on first use.
	GetOrCreate(ctx context.Context, userID string) (*model.Cart, error)

	// AddItem upserts a line, adding quantity when the product is already present.
	AddItem(ctx context.Context, cartID uuid.UUID, product *model.Product, quantity int) (*model.CartItem, error)

	// Snapshot reads the cart with lines priced at current product prices.
	// Returns nil when the cart does not exist.
	Snapshot(ctx context.Context, cartID uuid.UUID) (*model.CartSnapshot, error)

	// LockSnapshot is Snapshot inside tx, holding a row lock on the cart until
	// the transaction ends.
	LockSnapshot(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) (*model.CartSnapshot, error)

	// Clear deletes every item of the cart within tx; the cart row is kept.
	Clear(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) (int64, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction. It
	// reports false, without error, when an order already exists for the
	// order's provider payment id.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) (bool, error)

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByProviderPaymentID retrieves the order materialised from a payment.
	GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*model.Order, error)

	// GetByNumber retrieves one of the user's orders along with its items.
	GetByNumber(ctx context.Context, userID, orderNumber string) (*model.Order, error)

	// ListByUser retrieves the user's orders newest first, without items.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)
}

// PaymentRepository defines the interface for payment record operations.
type PaymentRepository interface {
	// Create inserts a payment within the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, payment *model.Payment) error

	// Record inserts a payment outside any transaction. It reports false when
	// a payment with the same provider id and status was already recorded.
	Record(ctx context.Context, payment *model.Payment) (bool, error)
}

// DeviceRepository defines the interface for push token storage.
type DeviceRepository interface {
	// Upsert registers a token, moving it to the given user if it already exists.
	Upsert(ctx context.Context, device *model.DeviceToken) error

	// TokensForUser lists the tokens registered by a user.
	TokensForUser(ctx context.Context, userID string) ([]string, error)

	// AllTokens lists every registered token.
	AllTokens(ctx context.Context) ([]string, error)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
