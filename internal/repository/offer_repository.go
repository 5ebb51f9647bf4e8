package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const offerCodeConstraint = "offers_code_key"

const offerColumns = `
	id, code, title, description, kind, discount_type, discount_value,
	min_order_amount, max_uses, used_count, start_date, end_date, priority,
	position, image_url, image_public_id, is_active, created_at, updated_at`

// offerRepository implements the OfferRepository interface using PostgreSQL.
type offerRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOfferRepository creates a new PostgreSQL-backed offer repository.
func NewOfferRepository(pool *pgxpool.Pool, logger zerolog.Logger) OfferRepository {
	return &offerRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "offer").Logger(),
	}
}

func scanOffer(row pgx.Row) (*model.Offer, error) {
	var o model.Offer
	err := row.Scan(
		&o.ID,
		&o.Code,
		&o.Title,
		&o.Description,
		&o.Kind,
		&o.DiscountType,
		&o.DiscountValue,
		&o.MinOrderAmount,
		&o.MaxUses,
		&o.UsedCount,
		&o.StartDate,
		&o.EndDate,
		&o.Priority,
		&o.Position,
		&o.ImageURL,
		&o.ImagePublicID,
		&o.IsActive,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *offerRepository) getOne(ctx context.Context, where string, arg any) (*model.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE ` + where

	offer, err := scanOffer(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query offer")
		return nil, fmt.Errorf("failed to query offer: %w", err)
	}
	return offer, nil
}

// GetByCode retrieves an offer by exact, case-sensitive code.
func (r *offerRepository) GetByCode(ctx context.Context, code string) (*model.Offer, error) {
	return r.getOne(ctx, "code = $1", code)
}

// GetByID retrieves an offer by its ID.
func (r *offerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *offerRepository) collect(rows pgx.Rows) ([]model.Offer, error) {
	defer rows.Close()

	offers := []model.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan offer row")
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, *o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating offer rows")
		return nil, fmt.Errorf("error iterating offers: %w", err)
	}

	return offers, nil
}

// List retrieves offers newest first.
func (r *offerRepository) List(ctx context.Context, limit, offset int) ([]model.Offer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM offers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query offers")
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	return r.collect(rows)
}

// ListActive retrieves offers usable at now. A kind filter of DISCOUNT_CODE or
// BANNER also matches offers of kind BOTH.
func (r *offerRepository) ListActive(ctx context.Context, filter model.ActiveOfferFilter, now time.Time) ([]model.Offer, error) {
	var kind, position *string
	if filter.Kind != nil {
		k := string(*filter.Kind)
		kind = &k
	}
	if filter.Position != nil {
		position = filter.Position
	}

	query := `
		SELECT ` + offerColumns + `
		FROM offers
		WHERE is_active
		  AND start_date <= $1
		  AND (end_date IS NULL OR end_date >= $1)
		  AND (max_uses IS NULL OR used_count < max_uses)
		  AND ($2::text IS NULL OR kind = $2 OR kind = 'BOTH')
		  AND ($3::text IS NULL OR position = $3)
		ORDER BY priority DESC, created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, now, kind, position)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query active offers")
		return nil, fmt.Errorf("failed to query active offers: %w", err)
	}
	return r.collect(rows)
}

// Create inserts a new offer. A duplicate code yields model.ErrOfferCodeConflict.
func (r *offerRepository) Create(ctx context.Context, offer *model.Offer) error {
	query := `
		INSERT INTO offers (
			id, code, title, description, kind, discount_type, discount_value,
			min_order_amount, max_uses, used_count, start_date, end_date, priority,
			position, image_url, image_public_id, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.pool.Exec(ctx, query,
		offer.ID, offer.Code, offer.Title, offer.Description, offer.Kind, offer.DiscountType, offer.DiscountValue,
		offer.MinOrderAmount, offer.MaxUses, offer.UsedCount, offer.StartDate, offer.EndDate, offer.Priority,
		offer.Position, offer.ImageURL, offer.ImagePublicID, offer.IsActive, offer.CreatedAt, offer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, offerCodeConstraint) {
			return model.ErrOfferCodeConflict
		}
		r.logger.Error().Err(err).Str("offer_id", offer.ID.String()).Msg("failed to create offer")
		return fmt.Errorf("failed to create offer: %w", err)
	}

	r.logger.Debug().Str("offer_id", offer.ID.String()).Msg("offer created successfully")
	return nil
}

// Update persists every mutable field of the offer.
func (r *offerRepository) Update(ctx context.Context, offer *model.Offer) error {
	query := `
		UPDATE offers SET
			code = $2, title = $3, description = $4, kind = $5, discount_type = $6,
			discount_value = $7, min_order_amount = $8, max_uses = $9, start_date = $10,
			end_date = $11, priority = $12, position = $13, image_url = $14,
			image_public_id = $15, is_active = $16, updated_at = $17
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		offer.ID, offer.Code, offer.Title, offer.Description, offer.Kind, offer.DiscountType,
		offer.DiscountValue, offer.MinOrderAmount, offer.MaxUses, offer.StartDate,
		offer.EndDate, offer.Priority, offer.Position, offer.ImageURL,
		offer.ImagePublicID, offer.IsActive, offer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, offerCodeConstraint) {
			return model.ErrOfferCodeConflict
		}
		r.logger.Error().Err(err).Str("offer_id", offer.ID.String()).Msg("failed to update offer")
		return fmt.Errorf("failed to update offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOfferNotFound
	}
	return nil
}

// Delete removes the offer row.
func (r *offerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("offer_id", id.String()).Msg("failed to delete offer")
		return fmt.Errorf("failed to delete offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOfferNotFound
	}
	return nil
}

// Retire deactivates the offer and closes its window at now.
func (r *offerRepository) Retire(ctx context.Context, id uuid.UUID, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE offers SET is_active = FALSE, end_date = $2, updated_at = $2 WHERE id = $1`,
		id, now,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("offer_id", id.String()).Msg("failed to retire offer")
		return fmt.Errorf("failed to retire offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOfferNotFound
	}
	return nil
}

// IncrementUsage consumes one use of the offer inside tx as a single
// conditional update, so concurrent redemptions can never pass the cap.
func (r *offerRepository) IncrementUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE offers
		SET used_count = used_count + 1, updated_at = $2
		WHERE id = $1
		  AND (max_uses IS NULL OR used_count < max_uses)
	`

	tag, err := tx.Exec(ctx, query, id, now)
	if err != nil {
		r.logger.Error().Err(err).Str("offer_id", id.String()).Msg("failed to increment offer usage")
		return false, fmt.Errorf("failed to increment offer usage: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// InvalidateActive is a no-op; nothing is cached at this layer.
func (r *offerRepository) InvalidateActive(context.Context) {}
