package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/kv"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// StateKey is where KVPersister stores the cart.
const StateKey = "cart_state"

// KVPersister saves the CartState as JSON in a kv.Store, for shoppers who
// are not signed in.
type KVPersister struct {
	store kv.Store
}

func NewKVPersister(store kv.Store) *KVPersister {
	return &KVPersister{store: store}
}

func (p *KVPersister) LoadCart(ctx context.Context) (*domain.CartState, error) {
	raw, err := p.store.Get(ctx, StateKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, apperrors.NotFound("cart", StateKey)
		}
		return nil, fmt.Errorf("kv get cart: %w", err)
	}

	var state domain.CartState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &state, nil
}

func (p *KVPersister) SaveCart(ctx context.Context, state *domain.CartState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := p.store.Set(ctx, StateKey, string(raw)); err != nil {
		return fmt.Errorf("kv set cart: %w", err)
	}
	return nil
}

// Clear forgets the stored cart.
func (p *KVPersister) Clear(ctx context.Context) error {
	return p.store.Delete(ctx, StateKey)
}
