package catalog

import (
	"cmp"
	"slices"

	"github.com/utafrali/storefront/internal/domain"
)

// Sort returns a copy of products ordered by key. The sort is stable, so
// products with equal keys keep their input order. Unknown keys sort by
// popularity.
func Sort(products []domain.Product, key domain.SortKey) []domain.Product {
	out := slices.Clone(products)
	if out == nil {
		out = []domain.Product{}
	}
	slices.SortStableFunc(out, comparator(key))
	return out
}

func comparator(key domain.SortKey) func(a, b domain.Product) int {
	switch key {
	case domain.SortPriceLow:
		return func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) }
	case domain.SortPriceHigh:
		return func(a, b domain.Product) int { return cmp.Compare(b.Price, a.Price) }
	case domain.SortRating:
		return func(a, b domain.Product) int { return cmp.Compare(b.Rating, a.Rating) }
	case domain.SortDiscount:
		return func(a, b domain.Product) int { return cmp.Compare(b.DiscountPercent(), a.DiscountPercent()) }
	case domain.SortNewest:
		return func(a, b domain.Product) int { return cmp.Compare(rank(b.New()), rank(a.New())) }
	default:
		return func(a, b domain.Product) int { return cmp.Compare(b.ReviewCount, a.ReviewCount) }
	}
}

func rank(b bool) int {
	if b {
		return 1
	}
	return 0
}
