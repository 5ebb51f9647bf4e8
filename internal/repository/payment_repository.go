package repository

import (
	"context"
	"fmt"

	"shopfront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const insertPayment = `
	INSERT INTO payments (
		id, order_id, user_id, amount, currency, status, method, provider,
		provider_payment_id, failure_reason, processed_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// paymentRepository implements the PaymentRepository interface using PostgreSQL.
type paymentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

func paymentArgs(p *model.Payment) []any {
	return []any{
		p.ID, p.OrderID, p.UserID, p.Amount, p.Currency, p.Status, p.Method, p.Provider,
		p.ProviderPaymentID, p.FailureReason, p.ProcessedAt,
	}
}

// Create inserts a payment within the provided transaction.
func (r *paymentRepository) Create(ctx context.Context, tx pgx.Tx, payment *model.Payment) error {
	if _, err := tx.Exec(ctx, insertPayment, paymentArgs(payment)...); err != nil {
		r.logger.Error().
			Err(err).
			Str("provider_payment_id", payment.ProviderPaymentID).
			Msg("failed to create payment")
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// Record inserts a payment outside any transaction, ignoring a repeat of the
// same provider payment id and status.
func (r *paymentRepository) Record(ctx context.Context, payment *model.Payment) (bool, error) {
	query := insertPayment + ` ON CONFLICT (provider_payment_id, status) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, paymentArgs(payment)...)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("provider_payment_id", payment.ProviderPaymentID).
			Msg("failed to record payment")
		return false, fmt.Errorf("failed to record payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
