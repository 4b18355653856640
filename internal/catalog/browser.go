package catalog

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
)

// ErrSuperseded is returned to a browse request whose result was discarded
// because a newer request started before it finished.
var ErrSuperseded = errors.New("catalog: request superseded")

// Browser holds one shopper's browse state and runs it against a Searcher.
// Every state change starts a new request and cancels the one in flight;
// only the latest request may publish results. A request that fails puts
// the state back to the query of the last published results.
type Browser struct {
	src Searcher

	mu        sync.Mutex
	query     Query
	committed Query
	gen       uint64
	cancel    context.CancelFunc
	results   []domain.Product
}

// NewBrowser creates a Browser with the default query.
func NewBrowser(src Searcher) *Browser {
	return &Browser{src: src, query: DefaultQuery(), committed: DefaultQuery(), results: []domain.Product{}}
}

// SetCriteria replaces the structured filters. Invalid criteria are
// rejected without touching the current state.
func (b *Browser) SetCriteria(ctx context.Context, c domain.FilterCriteria) ([]domain.Product, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return b.run(ctx, func(q *Query) { q.Criteria = c })
}

// SetSort changes the ordering.
func (b *Browser) SetSort(ctx context.Context, key domain.SortKey) ([]domain.Product, error) {
	return b.run(ctx, func(q *Query) { q.Sort = key })
}

// Search changes the search text.
func (b *Browser) Search(ctx context.Context, text string) ([]domain.Product, error) {
	text = strings.TrimSpace(text)
	return b.run(ctx, func(q *Query) { q.Search = text })
}

// Refresh reruns the current query.
func (b *Browser) Refresh(ctx context.Context) ([]domain.Product, error) {
	return b.run(ctx, func(*Query) {})
}

// Clear resets filters, search text and sort order.
func (b *Browser) Clear(ctx context.Context) ([]domain.Product, error) {
	return b.run(ctx, func(q *Query) { *q = DefaultQuery() })
}

// Query returns the current browse state.
func (b *Browser) Query() Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneQuery(b.query)
}

// ActiveFiltersCount counts the active structured filters.
func (b *Browser) ActiveFiltersCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query.Criteria.ActiveCount()
}

// Results returns the products of the latest completed request.
func (b *Browser) Results() []domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.results)
}

func (b *Browser) run(ctx context.Context, mutate func(*Query)) ([]domain.Product, error) {
	b.mu.Lock()
	mutate(&b.query)
	q := cloneQuery(b.query)
	b.gen++
	gen := b.gen
	if b.cancel != nil {
		b.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()
	defer cancel()

	products, err := b.src.Query(ctx, q)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return nil, ErrSuperseded
	}
	b.cancel = nil
	if err != nil {
		b.query = cloneQuery(b.committed)
		return nil, err
	}
	b.results = products
	b.committed = q
	return slices.Clone(products), nil
}

func cloneQuery(q Query) Query {
	q.Criteria.Categories = slices.Clone(q.Criteria.Categories)
	q.Criteria.Brands = slices.Clone(q.Criteria.Brands)
	return q
}
