package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var storeLoads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_store_loads_total",
	Help: "Catalog snapshot loads by result.",
}, []string{"result"})

// ProductSource supplies the full catalog in display order.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// Query is one browse request: structured criteria, search text and sort
// order.
type Query struct {
	Criteria domain.FilterCriteria
	Search   string
	Sort     domain.SortKey
}

// DefaultQuery matches the whole catalog in popularity order.
func DefaultQuery() Query {
	return Query{Criteria: domain.DefaultFilterCriteria(), Sort: domain.SortPopularity}
}

// Searcher answers browse queries.
type Searcher interface {
	Query(ctx context.Context, q Query) ([]domain.Product, error)
}

// Store caches an immutable snapshot of the catalog. Concurrent loads are
// collapsed into one call to the source, and the snapshot is reloaded once
// it is older than the TTL. A failed reload keeps serving the previous
// snapshot.
type Store struct {
	source ProductSource
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	products []domain.Product
	loadedAt time.Time
}

// NewStore creates a Store. A ttl of zero never expires the snapshot.
func NewStore(source ProductSource, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{source: source, ttl: ttl, logger: logger, now: time.Now}
}

// Products returns a copy of the current snapshot, loading it if needed.
func (s *Store) Products(ctx context.Context) ([]domain.Product, error) {
	products, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(products), nil
}

// Get returns the product with the given id.
func (s *Store) Get(ctx context.Context, id string) (domain.Product, error) {
	products, err := s.snapshot(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	i := slices.IndexFunc(products, func(p domain.Product) bool { return p.ID == id })
	if i < 0 {
		return domain.Product{}, apperrors.NotFound("product", id)
	}
	return products[i], nil
}

// Query filters and sorts the snapshot.
func (s *Store) Query(ctx context.Context, q Query) ([]domain.Product, error) {
	if err := q.Criteria.Validate(); err != nil {
		return nil, err
	}
	products, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	filtered, err := Filter(products, q.Criteria, q.Search)
	if err != nil {
		return nil, err
	}
	return Sort(filtered, q.Sort), nil
}

// Facets summarizes the snapshot for the filter controls.
func (s *Store) Facets(ctx context.Context) (Facets, error) {
	products, err := s.snapshot(ctx)
	if err != nil {
		return Facets{}, err
	}
	return FacetsOf(products), nil
}

// Invalidate drops the snapshot so the next read reloads it.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.loadedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Store) fresh() ([]domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadedAt.IsZero() {
		return s.products, false
	}
	if s.ttl > 0 && s.now().Sub(s.loadedAt) > s.ttl {
		return s.products, false
	}
	return s.products, true
}

func (s *Store) snapshot(ctx context.Context) ([]domain.Product, error) {
	current, ok := s.fresh()
	if ok {
		return current, nil
	}

	ch := s.group.DoChan("catalog", func() (any, error) {
		return s.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err == nil {
			return res.Val.([]domain.Product), nil
		}
		if current != nil {
			s.logger.WarnContext(ctx, "catalog reload failed, serving stale snapshot",
				slog.String("error", res.Err.Error()),
				slog.Int("products", len(current)),
			)
			return current, nil
		}
		return nil, res.Err
	}
}

func (s *Store) load(ctx context.Context) ([]domain.Product, error) {
	products, err := s.source.ListProducts(ctx)
	if err != nil {
		storeLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	s.mu.Lock()
	s.products = products
	s.loadedAt = s.now()
	s.mu.Unlock()

	storeLoads.WithLabelValues("ok").Inc()
	s.logger.InfoContext(ctx, "catalog loaded", slog.Int("products", len(products)))
	return products, nil
}

// Facets describes the values present in a catalog.
type Facets struct {
	Categories []string `json:"categories"`
	Brands     []string `json:"brands"`
	MinPrice   int64    `json:"minPrice"`
	MaxPrice   int64    `json:"maxPrice"`
}

// FacetsOf collects the sorted distinct categories and brands and the price
// bounds of products.
func FacetsOf(products []domain.Product) Facets {
	f := Facets{Categories: []string{}, Brands: []string{}}
	seenCat := map[string]bool{}
	seenBrand := map[string]bool{}
	for i, p := range products {
		if p.Category != "" && !seenCat[p.Category] {
			seenCat[p.Category] = true
			f.Categories = append(f.Categories, p.Category)
		}
		if p.Brand != "" && !seenBrand[p.Brand] {
			seenBrand[p.Brand] = true
			f.Brands = append(f.Brands, p.Brand)
		}
		if i == 0 || p.Price < f.MinPrice {
			f.MinPrice = p.Price
		}
		if i == 0 || p.Price > f.MaxPrice {
			f.MaxPrice = p.Price
		}
	}
	slices.Sort(f.Categories)
	slices.Sort(f.Brands)
	return f
}
