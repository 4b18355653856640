package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
)

const recentlyViewedPrefix = "recently_viewed:"

// RecentlyViewedRepository keeps each user's viewed product ids in a Redis
// list, newest first, capped at domain.MaxRecentlyViewed entries.
type RecentlyViewedRepository struct {
	client redis.UniversalClient
}

// NewRecentlyViewedRepository creates a new Redis-backed repository.
func NewRecentlyViewedRepository(client redis.UniversalClient) *RecentlyViewedRepository {
	return &RecentlyViewedRepository{client: client}
}

// Add moves productID to the head of the user's list.
func (r *RecentlyViewedRepository) Add(ctx context.Context, userID, productID string) error {
	key := recentlyViewedPrefix + userID

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, key, 0, productID)
		pipe.LPush(ctx, key, productID)
		pipe.LTrim(ctx, key, 0, domain.MaxRecentlyViewed-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record view: %w", err)
	}
	return nil
}

// List returns up to limit ids, most recent first.
func (r *RecentlyViewedRepository) List(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 || limit > domain.MaxRecentlyViewed {
		limit = domain.MaxRecentlyViewed
	}
	ids, err := r.client.LRange(ctx, recentlyViewedPrefix+userID, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list recently viewed: %w", err)
	}
	return ids, nil
}

// Clear forgets the user's history.
func (r *RecentlyViewedRepository) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, recentlyViewedPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis clear recently viewed: %w", err)
	}
	return nil
}
