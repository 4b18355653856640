package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const cartKeyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client redis.UniversalClient, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cart by user ID from Redis.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := getCart(ctx, r.client, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperrors.NotFound("cart", userID)
	}
	return cart, nil
}

// SaveIfVersion stores cart under WATCH so that a concurrent writer
// between the version read and the write aborts the transaction.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int) error {
	key := cartKeyPrefix + cart.UserID

	next := *cart
	next.Version = expected + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := getCart(ctx, tx, cart.UserID)
		if err != nil {
			return err
		}
		stored := 0
		if current != nil {
			stored = current.Version
		}
		if stored != expected {
			return apperrors.Conflict(fmt.Sprintf("cart version is %d, expected %d", stored, expected))
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		cart.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return apperrors.Conflict("cart modified concurrently")
	case errors.Is(err, apperrors.ErrConflict):
		return err
	default:
		return fmt.Errorf("redis save cart: %w", err)
	}
}

// Delete removes a cart from Redis by user ID.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}

// getCart returns nil without error when no cart is stored.
func getCart(ctx context.Context, c redis.Cmdable, userID string) (*domain.Cart, error) {
	data, err := c.Get(ctx, cartKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &cart, nil
}
