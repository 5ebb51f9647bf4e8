package repository

import (
	"context"
	"fmt"

	"shopfront/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type deviceRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDeviceRepository creates a new PostgreSQL-backed push token repository.
func NewDeviceRepository(pool *pgxpool.Pool, logger zerolog.Logger) DeviceRepository {
	return &deviceRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "device").Logger(),
	}
}

func (r *deviceRepository) Upsert(ctx context.Context, device *model.DeviceToken) error {
	query := `
		INSERT INTO device_tokens (token, user_id, platform, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query, device.Token, device.UserID, device.Platform).
		Scan(&device.CreatedAt, &device.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", device.UserID).Msg("failed to upsert device token")
		return fmt.Errorf("failed to upsert device token: %w", err)
	}
	return nil
}

func (r *deviceRepository) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	return r.tokens(ctx, `SELECT token FROM device_tokens WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
}

func (r *deviceRepository) AllTokens(ctx context.Context) ([]string, error) {
	return r.tokens(ctx, `SELECT token FROM device_tokens ORDER BY updated_at DESC`)
}

func (r *deviceRepository) tokens(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query device tokens")
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device tokens: %w", err)
	}
	return tokens, nil
}
