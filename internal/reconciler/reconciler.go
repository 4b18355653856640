// Package reconciler keeps a shopper's CartState in step with its backing
// store.
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var saves = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cart_reconciler_saves_total",
	Help: "Cart state saves by result.",
}, []string{"op", "result"})

// Persister loads and saves a whole CartState. LoadCart returns an error
// matching apperrors.ErrNotFound when nothing has been saved yet.
type Persister interface {
	LoadCart(ctx context.Context) (*domain.CartState, error)
	SaveCart(ctx context.Context, state *domain.CartState) error
}

// Reconciler applies cart mutations one at a time. A mutation is committed
// only after the resulting state is saved; if the save fails the state is
// rolled back and the error is returned without retrying.
type Reconciler struct {
	persister Persister
	logger    *slog.Logger

	mu    sync.Mutex
	state *domain.CartState
}

// New creates a Reconciler holding an empty state.
func New(persister Persister, logger *slog.Logger) *Reconciler {
	return &Reconciler{persister: persister, logger: logger, state: domain.NewCartState()}
}

// Load replaces the state with the persisted one. Call it once at session
// start.
func (r *Reconciler) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Resync discards local state in favor of the persisted one.
func (r *Reconciler) Resync(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *Reconciler) load(ctx context.Context) error {
	state, err := r.persister.LoadCart(ctx)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		r.state = domain.NewCartState()
		return nil
	case err != nil:
		return persistError("load cart", err)
	case state == nil:
		state = domain.NewCartState()
	}

	state.Normalize()
	r.state = state
	r.logger.DebugContext(ctx, "cart loaded",
		slog.Int("cart_lines", len(state.Cart)),
		slog.Int("saved_lines", len(state.SavedForLater)),
	)
	return nil
}

// Reset empties the in-memory state without saving, as on logout.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.state = domain.NewCartState()
	r.mu.Unlock()
}

// State returns a copy of the current state.
func (r *Reconciler) State() *domain.CartState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Summary returns the current state with its totals.
func (r *Reconciler) Summary() domain.CartSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.Summarize(r.state)
}

func (r *Reconciler) TotalPrice() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.TotalPrice()
}

func (r *Reconciler) TotalItems() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.TotalItems()
}

func (r *Reconciler) AddToCart(ctx context.Context, p domain.Product, size, color string, quantity int) error {
	return r.mutate(ctx, "add", func(s *domain.CartState) (bool, error) {
		return true, s.AddToCart(p, size, color, quantity)
	})
}

func (r *Reconciler) UpdateQuantity(ctx context.Context, k domain.LineKey, quantity int) error {
	return r.mutate(ctx, "update", func(s *domain.CartState) (bool, error) {
		return s.UpdateQuantity(k, quantity)
	})
}

func (r *Reconciler) RemoveFromCart(ctx context.Context, k domain.LineKey) error {
	return r.mutate(ctx, "remove", func(s *domain.CartState) (bool, error) {
		return s.RemoveFromCart(k), nil
	})
}

func (r *Reconciler) SaveForLater(ctx context.Context, k domain.LineKey) error {
	return r.mutate(ctx, "save_for_later", func(s *domain.CartState) (bool, error) {
		return s.SaveForLater(k)
	})
}

func (r *Reconciler) MoveToCart(ctx context.Context, k domain.LineKey) error {
	return r.mutate(ctx, "move_to_cart", func(s *domain.CartState) (bool, error) {
		return s.MoveToCart(k)
	})
}

func (r *Reconciler) RemoveSavedItem(ctx context.Context, k domain.LineKey) error {
	return r.mutate(ctx, "remove_saved", func(s *domain.CartState) (bool, error) {
		return s.RemoveSavedItem(k), nil
	})
}

func (r *Reconciler) ClearCart(ctx context.Context) error {
	return r.mutate(ctx, "clear", func(s *domain.CartState) (bool, error) {
		return s.ClearCart(), nil
	})
}

func (r *Reconciler) mutate(ctx context.Context, op string, apply func(*domain.CartState) (bool, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.state.Clone()
	changed, err := apply(r.state)
	if err != nil {
		r.state = before
		return err
	}
	if !changed {
		return nil
	}

	if err := r.persister.SaveCart(ctx, r.state.Clone()); err != nil {
		r.state = before
		saves.WithLabelValues(op, "error").Inc()
		r.logger.WarnContext(ctx, "cart save failed, rolled back",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return persistError("save cart", err)
	}

	saves.WithLabelValues(op, "ok").Inc()
	return nil
}

// persistError keeps client errors from the backing store (bad input,
// expired session) and reports everything else as a network failure.
func persistError(op string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && (appErr.Status < http.StatusInternalServerError || errors.Is(appErr, apperrors.ErrNetwork)) {
		return appErr
	}
	return apperrors.Network(op, err)
}
