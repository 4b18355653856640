package reconciler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/kv/memory"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// saveCount reads cart_reconciler_saves_total for one op and result.
func saveCount(t *testing.T, op, result string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, saves.WithLabelValues(op, result).Write(m))
	return m.GetCounter().GetValue()
}

// --- Mock Persister ---

type mockPersister struct {
	mock.Mock
}

func (m *mockPersister) LoadCart(ctx context.Context) (*domain.CartState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartState), args.Error(1)
}

func (m *mockPersister) SaveCart(ctx context.Context, state *domain.CartState) error {
	return m.Called(ctx, state).Error(0)
}

// slowPersister records the largest number of overlapping saves.
type slowPersister struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	saves    atomic.Int32
}

func (s *slowPersister) LoadCart(context.Context) (*domain.CartState, error) {
	return nil, apperrors.NotFound("cart", "x")
}

func (s *slowPersister) SaveCart(context.Context, *domain.CartState) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	s.saves.Add(1)
	time.Sleep(time.Millisecond)
	return nil
}

// --- Helpers ---

func shirt() domain.Product {
	return domain.Product{
		ID: "1", Name: "Cotton Casual Shirt", Brand: "ZARA", Price: 1299, InStock: true,
		Sizes: []string{"S", "M", "L"}, Colors: []string{"White", "Blue"},
	}
}

func dress() domain.Product {
	return domain.Product{
		ID: "2", Name: "Floral Summer Dress", Brand: "H&M", Price: 2199, InStock: true,
		Sizes: []string{"S", "M"}, Colors: []string{"Floral Print"},
	}
}

var shirtMBlue = domain.LineKey{ProductID: "1", Size: "M", Color: "Blue"}

// --- Tests ---

func TestLoad_NotFoundStartsEmpty(t *testing.T) {
	p := new(mockPersister)
	r := New(p, logger.Discard())
	ctx := context.Background()

	p.On("LoadCart", ctx).Return(nil, apperrors.NotFound("cart", "u-1"))

	require.NoError(t, r.Load(ctx))
	assert.Empty(t, r.State().Cart)
	p.AssertExpectations(t)
}

func TestLoad_NormalizesPersistedState(t *testing.T) {
	p := new(mockPersister)
	r := New(p, logger.Discard())
	ctx := context.Background()

	p.On("LoadCart", ctx).Return(&domain.CartState{Cart: []domain.CartLineItem{
		{Product: shirt(), Quantity: 1, Size: "M", Color: "Blue"},
		{Product: shirt(), Quantity: 2, Size: "M", Color: "Blue"},
		{Product: dress(), Quantity: 0, Size: "S", Color: "Floral Print"},
	}}, nil)

	require.NoError(t, r.Load(ctx))
	state := r.State()
	require.Len(t, state.Cart, 1)
	assert.Equal(t, 3, state.Cart[0].Quantity)
}

func TestLoad_FailureIsNetworkError(t *testing.T) {
	p := new(mockPersister)
	r := New(p, logger.Discard())
	ctx := context.Background()

	p.On("LoadCart", ctx).Return(nil, errors.New("connection refused"))

	err := r.Load(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestAddToCart_PersistsAfterMutation(t *testing.T) {
	p := new(mockPersister)
	r := New(p, logger.Discard())
	ctx := context.Background()

	p.On("SaveCart", ctx, mock.MatchedBy(func(s *domain.CartState) bool {
		return len(s.Cart) == 1 && s.Cart[0].Quantity == 2
	})).Return(nil).Once()

	require.NoError(t, r.AddToCart(ctx, shirt(), "M", "Blue", 2))
	assert.Equal(t, int64(2598), r.TotalPrice())
	assert.Equal(t, 2, r.TotalItems())
	p.AssertExpectations(t)
}

func TestMutation_RollsBackOnSaveFailure(t *testing.T) {
	p := new(mockPersister)
	r := New(p, logger.Discard())
	ctx := context.Background()

	okBefore := saveCount(t, "add", "ok")
	p.On("SaveCart", ctx, mock.Anything).Return(nil).Once()
	require.NoError(t, r.AddToCart(ctx, shirt(), "M", "Blue", 2))
	assert.Equal(t, okBefore+1, saveCount(t, "add", "ok"))
	before := r.State()

	failedBefore := saveCount(t, "add", "error")
	p.On("SaveCart", ctx, mock.Anything).Return(errors.New("timeout")).Once()
	err := r.AddToCart(ctx, dress(), "S", "Floral Print", 1)
	assert.Equal(t, failedBefore+1, saveCount(t, "add", "error"))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.Retryable())
	assert.Equal(t, before, r.State())
	p.AssertExpectations(t)
}

func TestMutation_RollbackCoversEveryOperation(t *testing.T) {
	ops := map[string]func(*Reconciler, context.Context) error{
		"update":         func(r *Reconciler, ctx context.Context) error { return r.UpdateQuantity(ctx, shirtMBlue, 5) },
		"remove":         func(r *Reconciler, ctx context.Context) error { return r.RemoveFromCart(ctx, shirtMBlue) },
		"save for later": func(r *Reconciler, ctx context.Context) error { return r.SaveForLater(ctx, shirtMBlue) },
		"clear":          func(r *Reconciler, ctx context.Context) error { return r.ClearCart(ctx) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			p := new(mockPersister)
			r := New(p, logger.Discard())
			ctx := context.Background()
			p.On("SaveCart", ctx, mock.Anything).Return(nil).Once()
			require.NoError(t, r.AddToCart(ctx, shirt(), "M", "Blue", 2))
			before := r.State()

			p.On("SaveCart", ctx, mock.Anything).Return(errors.New("offline")).Once()
			assert.ErrorIs(t, op(r, ctx), apperrors.ErrNetwork)
			assert.Equal(t, before, r.State())
		})
	}
}

func TestMutation_NoChangeSkipsSave(t *testing.T) {
	p := new(mockPersister)
	r := New(p, logger.Discard())
	ctx := context.Background()

	require.NoError(t, r.RemoveFromCart(ctx, shirtMBlue))
	require.NoError(t, r.MoveToCart(ctx, shirtMBlue))
	require.NoError(t, r.UpdateQuantity(ctx, shirtMBlue, 3))
	require.NoError(t, r.ClearCart(ctx))

	p.AssertNotCalled(t, "SaveCart", mock.Anything, mock.Anything)
}

func TestMutation_ValidationErrorSkipsSave(t *testing.T) {
	p := new(mockPersister)
	r := New(p, logger.Discard())
	ctx := context.Background()

	err := r.AddToCart(ctx, shirt(), "XXL", "Blue", 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Empty(t, r.State().Cart)
	p.AssertNotCalled(t, "SaveCart", mock.Anything, mock.Anything)
}

func TestMutation_ClientErrorsPassThrough(t *testing.T) {
	p := new(mockPersister)
	r := New(p, logger.Discard())
	ctx := context.Background()

	p.On("SaveCart", ctx, mock.Anything).Return(apperrors.Unauthorized("session expired"))

	err := r.AddToCart(ctx, shirt(), "M", "Blue", 1)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.NotErrorIs(t, err, apperrors.ErrNetwork)
	assert.Empty(t, r.State().Cart)
}

func TestMutations_AreSerialized(t *testing.T) {
	p := &slowPersister{}
	r := New(p, logger.Discard())
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.AddToCart(ctx, shirt(), "M", "Blue", 1))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.maxSeen.Load())
	assert.Equal(t, int32(20), p.saves.Load())
	assert.Equal(t, 20, r.TotalItems())
}

func TestSaveForLaterAndMoveBack(t *testing.T) {
	r := New(NewKVPersister(memory.New()), logger.Discard())
	ctx := context.Background()

	require.NoError(t, r.AddToCart(ctx, shirt(), "M", "Blue", 2))
	require.NoError(t, r.SaveForLater(ctx, shirtMBlue))
	assert.Equal(t, 0, r.TotalItems())
	assert.Len(t, r.State().SavedForLater, 1)

	require.NoError(t, r.MoveToCart(ctx, shirtMBlue))
	assert.Equal(t, 2, r.TotalItems())
	assert.Empty(t, r.State().SavedForLater)

	require.NoError(t, r.SaveForLater(ctx, shirtMBlue))
	require.NoError(t, r.RemoveSavedItem(ctx, shirtMBlue))
	assert.Empty(t, r.State().SavedForLater)
}

func TestResync_ReplacesLocalState(t *testing.T) {
	store := memory.New()
	persister := NewKVPersister(store)
	r := New(persister, logger.Discard())
	ctx := context.Background()
	require.NoError(t, r.AddToCart(ctx, shirt(), "M", "Blue", 1))

	other := New(persister, logger.Discard())
	require.NoError(t, other.Load(ctx))
	require.NoError(t, other.AddToCart(ctx, dress(), "S", "Floral Print", 1))

	require.NoError(t, r.Resync(ctx))
	assert.Len(t, r.State().Cart, 2)
}

func TestReset_DoesNotPersist(t *testing.T) {
	store := memory.New()
	r := New(NewKVPersister(store), logger.Discard())
	ctx := context.Background()
	require.NoError(t, r.AddToCart(ctx, shirt(), "M", "Blue", 1))

	r.Reset()

	assert.Empty(t, r.State().Cart)
	_, err := store.Get(ctx, StateKey)
	assert.NoError(t, err)
}

func TestSummary(t *testing.T) {
	r := New(NewKVPersister(memory.New()), logger.Discard())
	ctx := context.Background()
	require.NoError(t, r.AddToCart(ctx, shirt(), "M", "Blue", 2))
	require.NoError(t, r.AddToCart(ctx, dress(), "S", "Floral Print", 1))

	sum := r.Summary()
	assert.Equal(t, int64(4797), sum.TotalPrice)
	assert.Equal(t, 3, sum.TotalItems)
}
