package repository

import (
	"context"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their normalized email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateLastLogin stamps the user's most recent successful login.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// ProductRepository defines the interface for catalog persistence.
type ProductRepository interface {
	// ListProducts returns the whole catalog ordered by id.
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// GetByID retrieves a single product.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// Upsert inserts or replaces a product.
	Upsert(ctx context.Context, product *domain.Product) error
}

// CartRepository defines the interface for server-side cart storage.
type CartRepository interface {
	// Get retrieves the cart of a user.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// SaveIfVersion stores cart only if the stored version still equals
	// expected (0 meaning no cart stored yet). On success cart.Version is
	// expected+1. A lost race returns apperrors.ErrConflict.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int) error

	// Delete removes the cart of a user.
	Delete(ctx context.Context, userID string) error
}

// RecentlyViewedRepository keeps a bounded most-recent-first list of
// product ids per user.
type RecentlyViewedRepository interface {
	Add(ctx context.Context, userID, productID string) error
	List(ctx context.Context, userID string, limit int) ([]string, error)
	Clear(ctx context.Context, userID string) error
}

// TokenDenylist records revoked access tokens until they expire.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
