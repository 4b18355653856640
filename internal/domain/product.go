package domain

import (
	"errors"
	"fmt"
)

// Product is one catalog entry. Pointer fields are optional in the source
// data; use the accessor methods for their defaulted values.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Brand         string   `json:"brand"`
	Description   string   `json:"description"`
	Image         string   `json:"image"`
	Images        []string `json:"images"`
	Price         int64    `json:"price"`
	OriginalPrice *int64   `json:"originalPrice,omitempty"`
	Discount      *int     `json:"discount,omitempty"`
	Rating        float64  `json:"rating"`
	ReviewCount   int      `json:"reviewCount"`
	Category      string   `json:"category"`
	Subcategory   *string  `json:"subcategory,omitempty"`
	Sizes         []string `json:"sizes"`
	Colors        []string `json:"colors"`
	InStock       bool     `json:"inStock"`
	IsNew         *bool    `json:"isNew,omitempty"`
	IsBestseller  *bool    `json:"isBestseller,omitempty"`
}

// DiscountPercent returns the discount, 0 when absent.
func (p Product) DiscountPercent() int {
	if p.Discount == nil {
		return 0
	}
	return *p.Discount
}

// New reports the isNew flag, false when absent.
func (p Product) New() bool {
	return p.IsNew != nil && *p.IsNew
}

// Bestseller reports the isBestseller flag, false when absent.
func (p Product) Bestseller() bool {
	return p.IsBestseller != nil && *p.IsBestseller
}

// SubcategoryName returns the subcategory or "".
func (p Product) SubcategoryName() string {
	if p.Subcategory == nil {
		return ""
	}
	return *p.Subcategory
}

// Validate checks the invariants of a catalog record.
func (p Product) Validate() error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if p.Price < 0 {
		errs = append(errs, fmt.Errorf("price %d is negative", p.Price))
	}
	if p.OriginalPrice != nil && *p.OriginalPrice < 0 {
		errs = append(errs, fmt.Errorf("original price %d is negative", *p.OriginalPrice))
	}
	if d := p.DiscountPercent(); d < 0 || d > 100 {
		errs = append(errs, fmt.Errorf("discount %d outside [0,100]", d))
	}
	if p.Rating < 0 || p.Rating > MaxRating {
		errs = append(errs, fmt.Errorf("rating %.1f outside [0,%d]", p.Rating, MaxRating))
	}
	if p.ReviewCount < 0 {
		errs = append(errs, fmt.Errorf("review count %d is negative", p.ReviewCount))
	}
	if len(errs) > 0 {
		return fmt.Errorf("product %q: %w", p.ID, errors.Join(errs...))
	}
	return nil
}

// OffersSize reports whether size is acceptable for the product. A product
// without declared sizes accepts any value.
func (p Product) OffersSize(size string) bool {
	return offers(p.Sizes, size)
}

// OffersColor is OffersSize for colors.
func (p Product) OffersColor(color string) bool {
	return offers(p.Colors, color)
}

func offers(declared []string, v string) bool {
	if len(declared) == 0 {
		return true
	}
	for _, d := range declared {
		if d == v {
			return true
		}
	}
	return false
}

// Ptr returns a pointer to v, for populating optional Product fields.
func Ptr[T any](v T) *T {
	return &v
}
