package domain

import (
	"fmt"
	"slices"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Cart limits.
const (
	MaxQuantityPerLine = 100
	MaxLinesPerList    = 50
)

// LineKey identifies a line item: the same product in a different size or
// color is a different line.
type LineKey struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (k LineKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ProductID, k.Size, k.Color)
}

// CartLineItem is a quantity of one product variant. The product is a
// snapshot taken when the line was created, so persisted lines render
// without a catalog lookup.
//
// SavedFrom is set on saved lines only: the cart position the line left,
// so moving it back restores the cart order.
type CartLineItem struct {
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	SavedFrom *int    `json:"savedFrom,omitempty"`
}

// Key returns the line's composite identity.
func (li CartLineItem) Key() LineKey {
	return LineKey{ProductID: li.Product.ID, Size: li.Size, Color: li.Color}
}

// Subtotal is price times quantity.
func (li CartLineItem) Subtotal() int64 {
	return li.Product.Price * int64(li.Quantity)
}

// CartState holds the cart and the saved-for-later list. A key appears at
// most once across both lists, so every key is in exactly one of the
// states absent, in-cart or saved.
//
// Mutators report whether anything changed. Operations on an absent key
// are no-ops, not errors.
type CartState struct {
	Cart          []CartLineItem `json:"cart"`
	SavedForLater []CartLineItem `json:"savedForLater"`
}

// NewCartState returns an empty state.
func NewCartState() *CartState {
	return &CartState{Cart: []CartLineItem{}, SavedForLater: []CartLineItem{}}
}

// Clone returns a deep copy of the line lists. Product snapshots share
// their immutable slices.
func (s *CartState) Clone() *CartState {
	return &CartState{
		Cart:          append([]CartLineItem{}, s.Cart...),
		SavedForLater: append([]CartLineItem{}, s.SavedForLater...),
	}
}

func indexOf(items []CartLineItem, k LineKey) int {
	return slices.IndexFunc(items, func(li CartLineItem) bool { return li.Key() == k })
}

func checkQuantity(q int) error {
	switch {
	case q <= 0:
		return apperrors.InvalidInput("quantity must be positive")
	case q > MaxQuantityPerLine:
		return apperrors.InvalidInput(fmt.Sprintf("quantity cannot exceed %d per item", MaxQuantityPerLine))
	}
	return nil
}

func checkCapacity(items []CartLineItem) error {
	if len(items) >= MaxLinesPerList {
		return apperrors.InvalidInput(fmt.Sprintf("a list cannot hold more than %d items", MaxLinesPerList))
	}
	return nil
}

// AddToCart adds quantity of the product variant to the cart. An existing
// cart line for the key is incremented; a saved line for the key is moved
// back first and merged. The selection must name one of the product's
// declared sizes and colors.
func (s *CartState) AddToCart(p Product, size, color string, quantity int) error {
	if quantity <= 0 {
		return apperrors.InvalidInput("quantity must be positive")
	}
	if p.ID == "" {
		return apperrors.InvalidInput("product is required")
	}
	if !p.InStock {
		return apperrors.InvalidInput(fmt.Sprintf("%s is out of stock", p.Name))
	}
	if (len(p.Sizes) > 0 && size == "") || !p.OffersSize(size) {
		return apperrors.InvalidInput(fmt.Sprintf("select a size from %v", p.Sizes))
	}
	if (len(p.Colors) > 0 && color == "") || !p.OffersColor(color) {
		return apperrors.InvalidInput(fmt.Sprintf("select a color from %v", p.Colors))
	}

	k := LineKey{ProductID: p.ID, Size: size, Color: color}
	saved := indexOf(s.SavedForLater, k)
	if saved >= 0 {
		quantity += s.SavedForLater[saved].Quantity
	}
	if err := checkQuantity(quantity); err != nil {
		return err
	}

	// Nothing is modified until every check has passed.
	if i := indexOf(s.Cart, k); i >= 0 {
		merged := s.Cart[i].Quantity + quantity
		if err := checkQuantity(merged); err != nil {
			return err
		}
		s.Cart[i].Quantity = merged
	} else {
		if err := checkCapacity(s.Cart); err != nil {
			return err
		}
		pos := len(s.Cart)
		if saved >= 0 {
			pos = s.SavedForLater[saved].cartPosition(len(s.Cart))
		}
		s.Cart = slices.Insert(s.Cart, pos, CartLineItem{Product: p, Quantity: quantity, Size: size, Color: color})
	}
	if saved >= 0 {
		s.SavedForLater = slices.Delete(s.SavedForLater, saved, saved+1)
	}
	return nil
}

// UpdateQuantity sets the quantity of a cart line. A quantity of zero or
// less removes the line.
func (s *CartState) UpdateQuantity(k LineKey, quantity int) (bool, error) {
	if quantity <= 0 {
		return s.RemoveFromCart(k), nil
	}
	if err := checkQuantity(quantity); err != nil {
		return false, err
	}
	i := indexOf(s.Cart, k)
	if i < 0 || s.Cart[i].Quantity == quantity {
		return false, nil
	}
	s.Cart[i].Quantity = quantity
	return true, nil
}

// RemoveFromCart deletes the cart line for k.
func (s *CartState) RemoveFromCart(k LineKey) bool {
	i := indexOf(s.Cart, k)
	if i < 0 {
		return false
	}
	s.Cart = slices.Delete(s.Cart, i, i+1)
	return true
}

// SaveForLater moves the cart line for k to the end of the saved list,
// keeping its quantity and remembering its cart position.
func (s *CartState) SaveForLater(k LineKey) (bool, error) {
	i := indexOf(s.Cart, k)
	if i < 0 {
		return false, nil
	}
	item := s.Cart[i]
	item.SavedFrom = Ptr(i)
	moved, err := mergeInto(&s.SavedForLater, item, len(s.SavedForLater))
	if err != nil || !moved {
		return false, err
	}
	s.Cart = slices.Delete(s.Cart, i, i+1)
	return true, nil
}

// MoveToCart moves the saved line for k back to the cart position it was
// saved from, merging its quantity into an existing cart line for the
// same key.
func (s *CartState) MoveToCart(k LineKey) (bool, error) {
	i := indexOf(s.SavedForLater, k)
	if i < 0 {
		return false, nil
	}
	item := s.SavedForLater[i]
	pos := item.cartPosition(len(s.Cart))
	item.SavedFrom = nil
	moved, err := mergeInto(&s.Cart, item, pos)
	if err != nil || !moved {
		return false, err
	}
	s.SavedForLater = slices.Delete(s.SavedForLater, i, i+1)
	return true, nil
}

// cartPosition is where a saved line goes back into a cart of length n:
// the position it was saved from, clamped to n, or the end.
func (li CartLineItem) cartPosition(n int) int {
	if li.SavedFrom == nil || *li.SavedFrom < 0 {
		return n
	}
	return min(*li.SavedFrom, n)
}

// mergeInto inserts item into list at pos, or adds its quantity to the line
// already holding its key.
func mergeInto(list *[]CartLineItem, item CartLineItem, pos int) (bool, error) {
	if j := indexOf(*list, item.Key()); j >= 0 {
		merged := (*list)[j].Quantity + item.Quantity
		if err := checkQuantity(merged); err != nil {
			return false, err
		}
		(*list)[j].Quantity = merged
		return true, nil
	}
	if err := checkCapacity(*list); err != nil {
		return false, err
	}
	*list = slices.Insert(*list, pos, item)
	return true, nil
}

// RemoveSavedItem deletes the saved line for k.
func (s *CartState) RemoveSavedItem(k LineKey) bool {
	i := indexOf(s.SavedForLater, k)
	if i < 0 {
		return false
	}
	s.SavedForLater = slices.Delete(s.SavedForLater, i, i+1)
	return true
}

// ClearCart empties the cart and leaves saved items alone.
func (s *CartState) ClearCart() bool {
	if len(s.Cart) == 0 {
		return false
	}
	s.Cart = []CartLineItem{}
	return true
}

// TotalPrice sums price times quantity over the cart.
func (s *CartState) TotalPrice() int64 {
	var total int64
	for _, li := range s.Cart {
		total += li.Subtotal()
	}
	return total
}

// TotalItems sums quantities over the cart.
func (s *CartState) TotalItems() int {
	n := 0
	for _, li := range s.Cart {
		n += li.Quantity
	}
	return n
}

// Normalize repairs a state received from outside: lines with a
// non-positive quantity are dropped, duplicate keys within a list are
// merged, and a key present in both lists is merged into the cart.
// Quantities are capped at MaxQuantityPerLine.
func (s *CartState) Normalize() {
	cart := collapse(s.Cart)
	saved := collapse(s.SavedForLater)
	for i := range cart {
		cart[i].SavedFrom = nil
	}

	kept := saved[:0]
	for _, li := range saved {
		if j := indexOf(cart, li.Key()); j >= 0 {
			cart[j].Quantity = min(cart[j].Quantity+li.Quantity, MaxQuantityPerLine)
			continue
		}
		kept = append(kept, li)
	}
	s.Cart, s.SavedForLater = cart, kept
}

func collapse(items []CartLineItem) []CartLineItem {
	out := make([]CartLineItem, 0, len(items))
	for _, li := range items {
		if li.Quantity <= 0 || li.Product.ID == "" {
			continue
		}
		if j := indexOf(out, li.Key()); j >= 0 {
			out[j].Quantity = min(out[j].Quantity+li.Quantity, MaxQuantityPerLine)
			continue
		}
		li.Quantity = min(li.Quantity, MaxQuantityPerLine)
		out = append(out, li)
	}
	return out
}

// Validate checks the invariants Normalize establishes.
func (s *CartState) Validate() error {
	seen := make(map[LineKey]string, len(s.Cart)+len(s.SavedForLater))
	check := func(list string, items []CartLineItem) error {
		if len(items) > MaxLinesPerList {
			return apperrors.InvalidInput(fmt.Sprintf("%s holds more than %d items", list, MaxLinesPerList))
		}
		for _, li := range items {
			if err := checkQuantity(li.Quantity); err != nil {
				return err
			}
			if other, dup := seen[li.Key()]; dup {
				return apperrors.InvalidInput(fmt.Sprintf("%s appears in both %s and %s", li.Key(), other, list))
			}
			seen[li.Key()] = list
		}
		return nil
	}
	if err := check("cart", s.Cart); err != nil {
		return err
	}
	return check("savedForLater", s.SavedForLater)
}

// Cart is the server-side record of one user's CartState.
type Cart struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	CartState
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CartSummary is a CartState with its derived totals, as returned to
// clients.
type CartSummary struct {
	CartState
	TotalPrice int64 `json:"totalPrice"`
	TotalItems int   `json:"totalItems"`
}

// Summarize computes the totals of s.
func Summarize(s *CartState) CartSummary {
	return CartSummary{CartState: *s.Clone(), TotalPrice: s.TotalPrice(), TotalItems: s.TotalItems()}
}
