// Package catalog filters, sorts and caches the product catalog.
package catalog

import (
	"strings"

	"github.com/utafrali/storefront/internal/domain"
)

// Filter returns the products matching every active predicate of criteria
// and, when searchText is not blank, the text search. The input slice is
// never modified. Malformed criteria are rejected before any product is
// examined.
func Filter(products []domain.Product, criteria domain.FilterCriteria, searchText string) ([]domain.Product, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	m := newMatcher(criteria, searchText)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if m.matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

type matcher struct {
	text       string
	categories map[string]struct{}
	brands     map[string]struct{}
	price      *domain.PriceRange
	rating     float64
}

func newMatcher(c domain.FilterCriteria, searchText string) matcher {
	m := matcher{
		text:       strings.ToLower(strings.TrimSpace(searchText)),
		categories: toSet(c.Categories),
		brands:     toSet(c.Brands),
		rating:     c.Rating,
	}
	if !c.IsDefaultPriceRange() {
		pr := c.PriceRange
		m.price = &pr
	}
	return m
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func (m matcher) matches(p domain.Product) bool {
	if m.text != "" && !m.matchesText(p) {
		return false
	}
	if m.categories != nil {
		if _, ok := m.categories[p.Category]; !ok {
			return false
		}
	}
	if m.brands != nil {
		if _, ok := m.brands[p.Brand]; !ok {
			return false
		}
	}
	if m.price != nil && (p.Price < m.price.Min || p.Price > m.price.Max) {
		return false
	}
	if m.rating > 0 && p.Rating < m.rating {
		return false
	}
	return true
}

func (m matcher) matchesText(p domain.Product) bool {
	fields := [...]string{p.Name, p.Brand, p.Category, p.SubcategoryName(), p.Description}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), m.text) {
			return true
		}
	}
	return false
}
