package domain

import (
	"fmt"
	"math"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Price bounds of the unconstrained price range. A range equal to these
// bounds disables the price predicate, even when chosen explicitly.
const (
	DefaultMinPrice int64 = 0
	DefaultMaxPrice int64 = 50000
	MaxRating             = 5
)

// PriceRange is an inclusive price interval.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// FilterCriteria are the structured catalog filters. Empty sets and a zero
// rating mean "no constraint". Criteria are replaced as a whole, never
// patched.
type FilterCriteria struct {
	Categories []string   `json:"categories"`
	Brands     []string   `json:"brands"`
	PriceRange PriceRange `json:"priceRange"`
	Rating     float64    `json:"rating"`
}

// DefaultFilterCriteria returns criteria that match every product.
func DefaultFilterCriteria() FilterCriteria {
	return FilterCriteria{
		Categories: []string{},
		Brands:     []string{},
		PriceRange: PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice},
	}
}

// IsDefaultPriceRange reports whether the price predicate is disabled.
func (f FilterCriteria) IsDefaultPriceRange() bool {
	return f.PriceRange.Min == DefaultMinPrice && f.PriceRange.Max == DefaultMaxPrice
}

// ActiveCount is the number of active filters shown on the filter badge:
// one per selected category and brand, plus one each for a non-default
// price range and a rating threshold.
func (f FilterCriteria) ActiveCount() int {
	n := len(f.Categories) + len(f.Brands)
	if !f.IsDefaultPriceRange() {
		n++
	}
	if f.Rating > 0 {
		n++
	}
	return n
}

// Validate rejects criteria that cannot describe a product set.
func (f FilterCriteria) Validate() error {
	switch {
	case f.PriceRange.Min < 0:
		return apperrors.InvalidInput(fmt.Sprintf("min price %d is negative", f.PriceRange.Min))
	case f.PriceRange.Max < f.PriceRange.Min:
		return apperrors.InvalidInput(fmt.Sprintf("max price %d is below min price %d", f.PriceRange.Max, f.PriceRange.Min))
	case math.IsNaN(f.Rating) || f.Rating < 0 || f.Rating > MaxRating:
		return apperrors.InvalidInput(fmt.Sprintf("rating %.1f outside [0,%d]", f.Rating, MaxRating))
	}
	return nil
}

// SortKey selects a catalog ordering.
type SortKey string

const (
	SortPopularity SortKey = "popularity"
	SortPriceLow   SortKey = "price-low"
	SortPriceHigh  SortKey = "price-high"
	SortRating     SortKey = "rating"
	SortNewest     SortKey = "newest"
	SortDiscount   SortKey = "discount"
)

// SortKeys lists the supported keys in display order.
var SortKeys = []SortKey{SortPopularity, SortPriceLow, SortPriceHigh, SortNewest, SortRating, SortDiscount}

// ParseSortKey maps s to a SortKey, falling back to popularity.
func ParseSortKey(s string) SortKey {
	for _, k := range SortKeys {
		if string(k) == s {
			return k
		}
	}
	return SortPopularity
}
