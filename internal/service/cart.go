package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// maxCartAttempts bounds optimistic retries of one cart mutation.
const maxCartAttempts = 3

// LineInput addresses a cart line and, for add and update, a quantity.
// An add without a quantity adds one item.
type LineInput struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size" validate:"max=32"`
	Color     string `json:"color" validate:"max=32"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=100"`
}

// Key returns the line key the input addresses.
func (in LineInput) Key() domain.LineKey {
	return domain.LineKey{ProductID: in.ProductID, Size: in.Size, Color: in.Color}
}

// ProductLookup resolves product ids. *catalog.Store satisfies it.
type ProductLookup interface {
	Get(ctx context.Context, id string) (domain.Product, error)
}

// CartService implements the server side of the cart and saved-for-later
// lists.
type CartService struct {
	repo     repository.CartRepository
	products ProductLookup
	producer *event.Producer
	logger   *slog.Logger
	cartTTL  time.Duration
	now      func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, products ProductLookup, producer *event.Producer, logger *slog.Logger, cartTTL time.Duration) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		producer: producer,
		logger:   logger,
		cartTTL:  cartTTL,
		now:      time.Now,
	}
}

// GetCart retrieves the cart for a user. If no cart exists, returns an
// empty, unsaved cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	cart.Normalize()
	return cart, nil
}

// Replace stores state as the user's cart. Lines are normalized and their
// product snapshots refreshed from the catalog; lines naming unknown
// products are dropped.
func (s *CartService) Replace(ctx context.Context, userID string, state *domain.CartState) (*domain.Cart, error) {
	if state == nil {
		return nil, apperrors.InvalidInput("cart state is required")
	}

	incoming := state.Clone()
	incoming.Normalize()
	if err := s.refresh(ctx, incoming); err != nil {
		return nil, err
	}
	if err := incoming.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, "replace", func(cs *domain.CartState) (bool, error) {
		cs.Cart, cs.SavedForLater = incoming.Cart, incoming.SavedForLater
		return true, nil
	})
}

// AddItem adds a product variant to the cart, merging with an existing
// line.
func (s *CartService) AddItem(ctx context.Context, userID string, in LineInput) (*domain.Cart, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	p, err := s.products.Get(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("resolve product: %w", err)
	}
	return s.mutate(ctx, userID, "add", func(cs *domain.CartState) (bool, error) {
		if err := cs.AddToCart(p, in.Size, in.Color, in.Quantity); err != nil {
			return false, err
		}
		return true, nil
	})
}

// UpdateItem sets a line's quantity. Zero removes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID string, in LineInput) (*domain.Cart, error) {
	return s.mutate(ctx, userID, "update", func(cs *domain.CartState) (bool, error) {
		return cs.UpdateQuantity(in.Key(), in.Quantity)
	})
}

// RemoveItem deletes a cart line.
func (s *CartService) RemoveItem(ctx context.Context, userID string, k domain.LineKey) (*domain.Cart, error) {
	return s.mutate(ctx, userID, "remove", func(cs *domain.CartState) (bool, error) {
		return cs.RemoveFromCart(k), nil
	})
}

// SaveForLater moves a cart line to the saved list.
func (s *CartService) SaveForLater(ctx context.Context, userID string, k domain.LineKey) (*domain.Cart, error) {
	return s.mutate(ctx, userID, "save_for_later", func(cs *domain.CartState) (bool, error) {
		return cs.SaveForLater(k)
	})
}

// MoveToCart moves a saved line back to the cart.
func (s *CartService) MoveToCart(ctx context.Context, userID string, k domain.LineKey) (*domain.Cart, error) {
	return s.mutate(ctx, userID, "move_to_cart", func(cs *domain.CartState) (bool, error) {
		return cs.MoveToCart(k)
	})
}

// RemoveSaved deletes a saved line.
func (s *CartService) RemoveSaved(ctx context.Context, userID string, k domain.LineKey) (*domain.Cart, error) {
	return s.mutate(ctx, userID, "remove_saved", func(cs *domain.CartState) (bool, error) {
		return cs.RemoveSavedItem(k), nil
	})
}

// ClearCart empties the cart. Saved items are kept.
func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, "clear", func(cs *domain.CartState) (bool, error) {
		return cs.ClearCart(), nil
	})
}

// mutate applies fn to a fresh copy of the stored cart and saves it with a
// version check, retrying when another writer got there first. A mutation
// that changes nothing is not saved.
func (s *CartService) mutate(ctx context.Context, userID, op string, fn func(*domain.CartState) (bool, error)) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	for attempt := 1; attempt <= maxCartAttempts; attempt++ {
		cart, err := s.GetCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		expected := cart.Version

		changed, err := fn(&cart.CartState)
		if err != nil {
			return nil, err
		}
		if !changed {
			return cart, nil
		}

		now := s.now().UTC()
		cart.UpdatedAt = now
		cart.ExpiresAt = now.Add(s.cartTTL)

		err = s.repo.SaveIfVersion(ctx, cart, expected)
		if err == nil {
			s.publish(ctx, op, cart)
			s.logger.InfoContext(ctx, "cart updated",
				slog.String("user_id", userID),
				slog.String("op", op),
				slog.Int("version", cart.Version),
			)
			return cart, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("save cart: %w", err)
		}

		s.logger.DebugContext(ctx, "cart version conflict, retrying",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt),
		)
	}

	return nil, apperrors.Conflict("cart was modified concurrently, please retry")
}

func (s *CartService) publish(ctx context.Context, op string, cart *domain.Cart) {
	var err error
	if op == "clear" {
		err = s.producer.PublishCartCleared(ctx, cart.UserID)
	} else {
		err = s.producer.PublishCartUpdated(ctx, cart)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart event",
			slog.String("user_id", cart.UserID),
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
}

// refresh replaces each line's product snapshot with the catalog's copy.
func (s *CartService) refresh(ctx context.Context, state *domain.CartState) error {
	for _, list := range []*[]domain.CartLineItem{&state.Cart, &state.SavedForLater} {
		kept := (*list)[:0]
		for _, li := range *list {
			p, err := s.products.Get(ctx, li.Product.ID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					s.logger.WarnContext(ctx, "dropping cart line for unknown product",
						slog.String("product_id", li.Product.ID),
					)
					continue
				}
				return fmt.Errorf("resolve product: %w", err)
			}
			li.Product = p
			kept = append(kept, li)
		}
		*list = kept
	}
	return nil
}

func (s *CartService) newEmptyCart(userID string) *domain.Cart {
	now := s.now().UTC()
	return &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		CartState: *domain.NewCartState(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cartTTL),
	}
}
