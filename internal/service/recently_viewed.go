package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// RecentlyViewedService tracks the products a user has opened.
type RecentlyViewedService struct {
	repo     repository.RecentlyViewedRepository
	products ProductLookup
	logger   *slog.Logger
}

// NewRecentlyViewedService creates a new recently viewed service.
func NewRecentlyViewedService(repo repository.RecentlyViewedRepository, products ProductLookup, logger *slog.Logger) *RecentlyViewedService {
	return &RecentlyViewedService{repo: repo, products: products, logger: logger}
}

// Record notes that userID viewed productID. Unknown products are
// rejected.
func (s *RecentlyViewedService) Record(ctx context.Context, userID, productID string) error {
	if _, err := s.products.Get(ctx, productID); err != nil {
		return fmt.Errorf("resolve product: %w", err)
	}
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// List returns up to limit products, most recently viewed first. The limit
// is clamped to [1, domain.MaxRecentlyViewed]. Products that left the
// catalog are skipped.
func (s *RecentlyViewedService) List(ctx context.Context, userID string, limit int) ([]domain.Product, error) {
	if limit <= 0 || limit > domain.MaxRecentlyViewed {
		limit = domain.MaxRecentlyViewed
	}

	ids, err := s.repo.List(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recently viewed: %w", err)
	}

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.products.Get(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.DebugContext(ctx, "skipping recently viewed product no longer in catalog",
					slog.String("product_id", id),
				)
				continue
			}
			return nil, fmt.Errorf("resolve product: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}

// Clear forgets the user's history.
func (s *RecentlyViewedService) Clear(ctx context.Context, userID string) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear recently viewed: %w", err)
	}
	return nil
}
