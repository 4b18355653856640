package catalog

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/storefront/internal/domain"
)

func TestSort_Keys(t *testing.T) {
	tests := []struct {
		key  domain.SortKey
		want []string
	}{
		{domain.SortPopularity, []string{"6", "1", "2", "5", "7", "3", "4", "8"}},
		{domain.SortPriceLow, []string{"3", "1", "2", "7", "6", "4", "5", "8"}},
		{domain.SortPriceHigh, []string{"8", "5", "4", "6", "7", "2", "1", "3"}},
		{domain.SortRating, []string{"8", "3", "5", "2", "6", "4", "1", "7"}},
		{domain.SortNewest, []string{"1", "3", "6", "2", "4", "5", "7", "8"}},
		{domain.SortDiscount, []string{"1", "3", "5", "6", "4", "7", "2", "8"}},
		{domain.SortKey("unknown"), []string{"6", "1", "2", "5", "7", "3", "4", "8"}},
	}

	for _, tc := range tests {
		t.Run(string(tc.key), func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Sort(sampleCatalog(), tc.key)))
		})
	}
}

func TestSort_ExampleScenario(t *testing.T) {
	catalog := []domain.Product{
		{ID: "1", Price: 1299, Rating: 4.2, ReviewCount: 1204, IsNew: domain.Ptr(true)},
		{ID: "2", Price: 2199, Rating: 4.5, ReviewCount: 856, IsNew: domain.Ptr(false)},
	}

	assert.Equal(t, []string{"1", "2"}, ids(Sort(catalog, domain.SortPopularity)))
	assert.Equal(t, []string{"1", "2"}, ids(Sort(catalog, domain.SortNewest)))
}

func TestSort_PriceHighReversesPriceLow(t *testing.T) {
	low := Sort(sampleCatalog(), domain.SortPriceLow)
	high := Sort(low, domain.SortPriceHigh)

	reversed := slices.Clone(ids(low))
	slices.Reverse(reversed)
	assert.Equal(t, reversed, ids(high))
}

func TestSort_Idempotent(t *testing.T) {
	for _, key := range domain.SortKeys {
		once := Sort(sampleCatalog(), key)
		assert.Equal(t, once, Sort(once, key), string(key))
	}
}

func TestSort_StableForEqualKeys(t *testing.T) {
	products := []domain.Product{
		{ID: "a", Price: 100},
		{ID: "b", Price: 100},
		{ID: "c", Price: 50},
		{ID: "d", Price: 100},
	}

	assert.Equal(t, []string{"c", "a", "b", "d"}, ids(Sort(products, domain.SortPriceLow)))
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids(Sort(products, domain.SortPriceHigh)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(Sort(products, domain.SortDiscount)))
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	catalog := sampleCatalog()
	_ = Sort(catalog, domain.SortPriceHigh)
	assert.Equal(t, sampleCatalog(), catalog)
}

func TestSort_Empty(t *testing.T) {
	assert.Empty(t, Sort(nil, domain.SortRating))
	assert.NotNil(t, Sort(nil, domain.SortRating))
}
