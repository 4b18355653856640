package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ============================================================================
// Product Tests
// ============================================================================

func TestProduct_OptionalDefaults(t *testing.T) {
	p := Product{}
	assert.Equal(t, 0, p.DiscountPercent())
	assert.False(t, p.New())
	assert.False(t, p.Bestseller())
	assert.Empty(t, p.SubcategoryName())

	p.Discount = Ptr(32)
	p.IsNew = Ptr(true)
	p.IsBestseller = Ptr(false)
	p.Subcategory = Ptr("Shirts")
	assert.Equal(t, 32, p.DiscountPercent())
	assert.True(t, p.New())
	assert.False(t, p.Bestseller())
	assert.Equal(t, "Shirts", p.SubcategoryName())
}

func TestProduct_Validate(t *testing.T) {
	assert.NoError(t, shirt().Validate())

	bad := Product{Price: -1, Rating: 6, ReviewCount: -2, Discount: Ptr(120)}
	err := bad.Validate()
	assert.Error(t, err)
	for _, part := range []string{"id is required", "name is required", "price -1", "rating 6.0", "review count -2", "discount 120"} {
		assert.Contains(t, err.Error(), part)
	}
}

func TestProduct_Offers(t *testing.T) {
	p := shirt()
	assert.True(t, p.OffersSize("M"))
	assert.False(t, p.OffersSize("m"))
	assert.True(t, p.OffersColor("Black"))
	assert.False(t, p.OffersColor(""))

	assert.True(t, Product{}.OffersSize("anything"))
}

// ============================================================================
// FilterCriteria Tests
// ============================================================================

func TestFilterCriteria_Default(t *testing.T) {
	f := DefaultFilterCriteria()
	assert.True(t, f.IsDefaultPriceRange())
	assert.Equal(t, 0, f.ActiveCount())
	assert.NoError(t, f.Validate())
}

func TestFilterCriteria_ActiveCount(t *testing.T) {
	f := FilterCriteria{
		Categories: []string{"Men", "Women"},
		Brands:     []string{"ZARA"},
		PriceRange: PriceRange{Min: 1000, Max: DefaultMaxPrice},
		Rating:     4,
	}
	assert.Equal(t, 5, f.ActiveCount())

	f.PriceRange = PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice}
	f.Rating = 0
	assert.Equal(t, 3, f.ActiveCount())
}

func TestFilterCriteria_Validate(t *testing.T) {
	tests := []struct {
		name string
		f    FilterCriteria
	}{
		{"negative min", FilterCriteria{PriceRange: PriceRange{Min: -1, Max: 100}}},
		{"inverted range", FilterCriteria{PriceRange: PriceRange{Min: 500, Max: 100}}},
		{"rating above max", FilterCriteria{PriceRange: PriceRange{Max: 100}, Rating: 5.5}},
		{"negative rating", FilterCriteria{PriceRange: PriceRange{Max: 100}, Rating: -1}},
		{"NaN rating", FilterCriteria{PriceRange: PriceRange{Max: 100}, Rating: math.NaN()}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.f.Validate(), apperrors.ErrInvalidInput)
		})
	}
}

func TestParseSortKey(t *testing.T) {
	for _, k := range SortKeys {
		assert.Equal(t, k, ParseSortKey(string(k)))
	}
	assert.Equal(t, SortPopularity, ParseSortKey(""))
	assert.Equal(t, SortPopularity, ParseSortKey("cheapest"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@example.in", NormalizeEmail("  Ana@Example.IN "))
}
