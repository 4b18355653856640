package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func sampleCart() *domain.Cart {
	now := time.Now().UTC().Truncate(time.Millisecond)
	state := domain.NewCartState()
	state.Cart = append(state.Cart, domain.CartLineItem{
		Product:  domain.Product{ID: "1", Name: "Oversize Basic T-Shirt", Price: 29999, InStock: true},
		Quantity: 2,
		Size:     "M",
		Color:    "Siyah",
	})
	return &domain.Cart{
		ID:        "cart-001",
		UserID:    "user-001",
		CartState: *state,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

// ---------------------------------------------------------------------------
// CartRepository
// ---------------------------------------------------------------------------

func TestCartRepository_Get_NotFound(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewCartRepository(client, time.Hour)

	_, err := repo.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_SaveIfVersion_CreateThenGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, 24*time.Hour)
	ctx := context.Background()

	cart := sampleCart()
	require.NoError(t, repo.SaveIfVersion(ctx, cart, 0))
	assert.Equal(t, 1, cart.Version)

	got, err := repo.Get(ctx, cart.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	require.Len(t, got.Cart, 1)
	assert.Equal(t, "1", got.Cart[0].Product.ID)
	assert.Equal(t, 2, got.Cart[0].Quantity)

	assert.Equal(t, 24*time.Hour, mr.TTL("cart:user-001"))
}

func TestCartRepository_SaveIfVersion_StaleVersion(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewCartRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.SaveIfVersion(ctx, sampleCart(), 0))

	stale := sampleCart()
	err := repo.SaveIfVersion(ctx, stale, 0)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 0, stale.Version)

	got, err := repo.Get(ctx, "user-001")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestCartRepository_SaveIfVersion_Sequential(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewCartRepository(client, time.Hour)
	ctx := context.Background()

	cart := sampleCart()
	for want := 1; want <= 3; want++ {
		require.NoError(t, repo.SaveIfVersion(ctx, cart, cart.Version))
		assert.Equal(t, want, cart.Version)
	}
}

func TestCartRepository_SaveIfVersion_ConcurrentWritersOneWins(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewCartRepository(client, time.Hour)
	ctx := context.Background()

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.SaveIfVersion(ctx, sampleCart(), 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperrors.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}

func TestCartRepository_Get_CorruptPayload(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, time.Hour)

	require.NoError(t, mr.Set("cart:user-001", "{not json"))

	_, err := repo.Get(context.Background(), "user-001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal cart")
}

func TestCartRepository_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.SaveIfVersion(ctx, sampleCart(), 0))
	require.NoError(t, repo.Delete(ctx, "user-001"))
	assert.False(t, mr.Exists("cart:user-001"))

	// Deleting a missing cart is not an error.
	assert.NoError(t, repo.Delete(ctx, "user-001"))
}

func TestCartRepository_StoredShape(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, time.Hour)

	require.NoError(t, repo.SaveIfVersion(context.Background(), sampleCart(), 0))

	raw, err := mr.Get("cart:user-001")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Contains(t, doc, "cart")
	assert.Contains(t, doc, "savedForLater")
	assert.EqualValues(t, 1, doc["version"])
}

func TestCartRepository_ConnectionError(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, time.Hour)
	mr.Close()

	_, err := repo.Get(context.Background(), "user-001")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))

	err = repo.SaveIfVersion(context.Background(), sampleCart(), 0)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrConflict))
}

// ---------------------------------------------------------------------------
// RecentlyViewedRepository
// ---------------------------------------------------------------------------

func TestRecentlyViewed_MostRecentFirstWithoutDuplicates(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewRecentlyViewedRepository(client)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3", "1"} {
		require.NoError(t, repo.Add(ctx, "u1", id))
	}

	ids, err := repo.List(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "2"}, ids)
}

func TestRecentlyViewed_CappedAtMax(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRecentlyViewedRepository(client)
	ctx := context.Background()

	for i := range domain.MaxRecentlyViewed + 5 {
		require.NoError(t, repo.Add(ctx, "u1", string(rune('a'+i))))
	}

	list, err := mr.List("recently_viewed:u1")
	require.NoError(t, err)
	assert.Len(t, list, domain.MaxRecentlyViewed)

	ids, err := repo.List(ctx, "u1", 100)
	require.NoError(t, err)
	assert.Len(t, ids, domain.MaxRecentlyViewed)
	assert.Equal(t, string(rune('a'+domain.MaxRecentlyViewed+4)), ids[0])
}

func TestRecentlyViewed_LimitAndClear(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewRecentlyViewedRepository(client)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, repo.Add(ctx, "u1", id))
	}

	ids, err := repo.List(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, ids)

	require.NoError(t, repo.Clear(ctx, "u1"))
	ids, err = repo.List(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// ---------------------------------------------------------------------------
// TokenDenylist
// ---------------------------------------------------------------------------

func TestTokenDenylist(t *testing.T) {
	client, mr := setupTestRedis(t)
	denylist := NewTokenDenylist(client)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	denylist.now = func() time.Time { return now }
	ctx := context.Background()

	revoked, err := denylist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, denylist.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	revoked, err = denylist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, time.Hour, mr.TTL("revoked_token:jti-1"))

	mr.FastForward(time.Hour + time.Second)
	revoked, err = denylist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenDenylist_ExpiredTokenIgnored(t *testing.T) {
	client, mr := setupTestRedis(t)
	denylist := NewTokenDenylist(client)

	require.NoError(t, denylist.Revoke(context.Background(), "old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("revoked_token:old"))
}
