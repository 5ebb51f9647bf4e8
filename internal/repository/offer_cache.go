package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"shopfront/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const activeOffersKeyPrefix = "offers:active:"

// cachedOfferRepository keeps banner listings in Redis. Every write drops all
// cached listings; cached entries are re-filtered against the request time.
type cachedOfferRepository struct {
	OfferRepository
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedOfferRepository wraps repo with a Redis-backed ListActive cache.
func NewCachedOfferRepository(repo OfferRepository, client *redis.Client, ttl time.Duration, logger zerolog.Logger) OfferRepository {
	return &cachedOfferRepository{
		OfferRepository: repo,
		client:          client,
		ttl:             ttl,
		logger:          logger.With().Str("repository", "offer_cache").Logger(),
	}
}

func activeOffersKey(filter model.ActiveOfferFilter) string {
	kind, position := "*", "*"
	if filter.Kind != nil {
		kind = string(*filter.Kind)
	}
	if filter.Position != nil {
		position = *filter.Position
	}
	return activeOffersKeyPrefix + kind + ":" + position
}

func (r *cachedOfferRepository) ListActive(ctx context.Context, filter model.ActiveOfferFilter, now time.Time) ([]model.Offer, error) {
	key := activeOffersKey(filter)

	if cached, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var offers []model.Offer
		if json.Unmarshal(cached, &offers) == nil {
			usable := make([]model.Offer, 0, len(offers))
			for i := range offers {
				if offers[i].UsableAt(now) {
					usable = append(usable, offers[i])
				}
			}
			return usable, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn().Err(err).Str("key", key).Msg("offer cache read failed")
	}

	offers, err := r.OfferRepository.ListActive(ctx, filter, now)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(offers); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("offer cache write failed")
		}
	}

	return offers, nil
}

func (r *cachedOfferRepository) invalidate(ctx context.Context) {
	var keys []string
	iter := r.client.Scan(ctx, 0, activeOffersKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn().Err(err).Msg("offer cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("offer cache invalidation failed")
	}
}

func (r *cachedOfferRepository) Create(ctx context.Context, offer *model.Offer) error {
	if err := r.OfferRepository.Create(ctx, offer); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedOfferRepository) Update(ctx context.Context, offer *model.Offer) error {
	if err := r.OfferRepository.Update(ctx, offer); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedOfferRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.OfferRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedOfferRepository) Retire(ctx context.Context, id uuid.UUID, now time.Time) error {
	if err := r.OfferRepository.Retire(ctx, id, now); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// InvalidateActive must run only after the transaction that changed
// used_count has committed.
func (r *cachedOfferRepository) InvalidateActive(ctx context.Context) {
	r.invalidate(ctx)
}
