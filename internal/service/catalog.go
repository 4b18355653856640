package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// CatalogService serves browse requests from the cached catalog.
type CatalogService struct {
	store  *catalog.Store
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store *catalog.Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

// Browse filters, sorts and paginates the catalog.
func (s *CatalogService) Browse(ctx context.Context, q catalog.Query, params pagination.Params) (*catalog.Page, error) {
	products, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}

	return &catalog.Page{
		Result:        pagination.Paginate(products, params),
		ActiveFilters: q.Criteria.ActiveCount(),
	}, nil
}

// Get returns one product.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Facets returns the values the filter UI offers.
func (s *CatalogService) Facets(ctx context.Context) (catalog.Facets, error) {
	f, err := s.store.Facets(ctx)
	if err != nil {
		return catalog.Facets{}, fmt.Errorf("catalog facets: %w", err)
	}
	return f, nil
}
