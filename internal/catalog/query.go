package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// Page is one page of browse results.
type Page struct {
	pagination.Result[domain.Product]
	ActiveFilters int `json:"active_filters"`
}

// Values encodes q as URL query parameters. Multi-valued filters repeat
// the parameter; defaults are omitted.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	for _, c := range q.Criteria.Categories {
		v.Add("category", c)
	}
	for _, b := range q.Criteria.Brands {
		v.Add("brand", b)
	}
	if !q.Criteria.IsDefaultPriceRange() {
		v.Set("min_price", strconv.FormatInt(q.Criteria.PriceRange.Min, 10))
		v.Set("max_price", strconv.FormatInt(q.Criteria.PriceRange.Max, 10))
	}
	if q.Criteria.Rating > 0 {
		v.Set("rating", strconv.FormatFloat(q.Criteria.Rating, 'f', -1, 64))
	}
	if q.Sort != "" && q.Sort != domain.SortPopularity {
		v.Set("sort", string(q.Sort))
	}
	return v
}

// ParseQuery decodes the parameters written by Values. Category and brand
// also accept comma-separated lists. Unknown sort keys fall back to
// popularity; malformed numbers are rejected.
func ParseQuery(v url.Values) (Query, error) {
	q := DefaultQuery()
	q.Search = strings.TrimSpace(v.Get("q"))
	q.Sort = domain.ParseSortKey(v.Get("sort"))
	q.Criteria.Categories = splitList(v["category"])
	q.Criteria.Brands = splitList(v["brand"])

	var err error
	if s := v.Get("min_price"); s != "" {
		if q.Criteria.PriceRange.Min, err = strconv.ParseInt(s, 10, 64); err != nil {
			return Query{}, apperrors.InvalidInput(fmt.Sprintf("min_price %q is not an integer", s))
		}
	}
	if s := v.Get("max_price"); s != "" {
		if q.Criteria.PriceRange.Max, err = strconv.ParseInt(s, 10, 64); err != nil {
			return Query{}, apperrors.InvalidInput(fmt.Sprintf("max_price %q is not an integer", s))
		}
	}
	if s := v.Get("rating"); s != "" {
		if q.Criteria.Rating, err = strconv.ParseFloat(s, 64); err != nil {
			return Query{}, apperrors.InvalidInput(fmt.Sprintf("rating %q is not a number", s))
		}
	}

	if err := q.Criteria.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

func splitList(raw []string) []string {
	out := []string{}
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
