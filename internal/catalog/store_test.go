package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

type fakeSource struct {
	calls    atomic.Int32
	err      error
	products []domain.Product
	gate     chan struct{}
}

func (f *fakeSource) ListProducts(ctx context.Context) ([]domain.Product, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func TestStore_LoadsOnceWithinTTL(t *testing.T) {
	src := &fakeSource{products: sampleCatalog()}
	s := NewStore(src, time.Minute, logger.Discard())

	for range 3 {
		got, err := s.Products(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 8)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestStore_ReloadsAfterTTL(t *testing.T) {
	src := &fakeSource{products: sampleCatalog()}
	s := NewStore(src, time.Minute, logger.Discard())
	now := time.Now()
	s.now = func() time.Time { return now }

	_, err := s.Products(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestStore_CollapsesConcurrentLoads(t *testing.T) {
	src := &fakeSource{products: sampleCatalog(), gate: make(chan struct{})}
	s := NewStore(src, time.Minute, logger.Discard())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Products(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got, 8)
		}()
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestStore_StaleOnReloadFailure(t *testing.T) {
	src := &fakeSource{products: sampleCatalog()}
	s := NewStore(src, time.Minute, logger.Discard())

	_, err := s.Products(context.Background())
	require.NoError(t, err)

	src.err = errors.New("db down")
	s.Invalidate()

	got, err := s.Products(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 8)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestStore_FirstLoadFailure(t *testing.T) {
	s := NewStore(&fakeSource{err: errors.New("db down")}, time.Minute, logger.Discard())

	_, err := s.Products(context.Background())
	assert.ErrorContains(t, err, "load catalog")
}

func TestStore_ContextCanceledWhileLoading(t *testing.T) {
	src := &fakeSource{products: sampleCatalog(), gate: make(chan struct{})}
	defer close(src.gate)
	s := NewStore(src, time.Minute, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Products(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_ProductsReturnsCopy(t *testing.T) {
	s := NewStore(&fakeSource{products: sampleCatalog()}, 0, logger.Discard())

	got, err := s.Products(context.Background())
	require.NoError(t, err)
	got[0].Name = "changed"

	again, err := s.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cotton Casual Shirt", again[0].Name)
}

func TestStore_Get(t *testing.T) {
	s := NewStore(&fakeSource{products: sampleCatalog()}, 0, logger.Discard())

	p, err := s.Get(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "Designer Handbag", p.Name)

	_, err = s.Get(context.Background(), "404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_Query(t *testing.T) {
	s := NewStore(&fakeSource{products: sampleCatalog()}, 0, logger.Discard())

	got, err := s.Query(context.Background(), Query{
		Criteria: domain.FilterCriteria{Categories: []string{"Women"}, PriceRange: domain.PriceRange{Max: domain.DefaultMaxPrice}},
		Sort:     domain.SortPriceLow,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "5", "8"}, ids(got))
}

func TestStore_QueryRejectsInvalidCriteriaWithoutLoading(t *testing.T) {
	src := &fakeSource{products: sampleCatalog()}
	s := NewStore(src, 0, logger.Discard())

	_, err := s.Query(context.Background(), Query{Criteria: domain.FilterCriteria{Rating: 9}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Zero(t, src.calls.Load())
}

func TestFacetsOf(t *testing.T) {
	f := FacetsOf(sampleCatalog())

	assert.Equal(t, []string{"Kids", "Men", "Sports", "Women"}, f.Categories)
	assert.Equal(t, []string{"Clarks", "GAP Kids", "H&M", "Hermès", "Levis", "Michael Kors", "Nike", "ZARA"}, f.Brands)
	assert.Equal(t, int64(899), f.MinPrice)
	assert.Equal(t, int64(15999), f.MaxPrice)

	empty := FacetsOf(nil)
	assert.Empty(t, empty.Categories)
	assert.Zero(t, empty.MaxPrice)
}
