package cart

import (
	"github.com/shopspring/decimal"

	"FurniStore/internal/catalog"
)

type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// State is what listeners and persisters see. Total and ItemCount are always
// derived from Items by recompute, never adjusted incrementally.
type State struct {
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

func EmptyState() State {
	return State{Items: []Item{}, Total: decimal.Zero}
}

func (s *State) recompute() {
	if s.Items == nil {
		s.Items = []Item{}
	}
	total := decimal.Zero
	count := 0
	for _, it := range s.Items {
		total = total.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		count += it.Quantity
	}
	s.Total = total
	s.ItemCount = count
}

func (s State) clone() State {
	c := State{Items: make([]Item, len(s.Items)), Total: s.Total, ItemCount: s.ItemCount}
	for i, it := range s.Items {
		c.Items[i] = Item{Product: it.Product.Clone(), Quantity: it.Quantity}
	}
	return c
}

// Quantity returns the quantity of productID, or 0.
func (s State) Quantity(productID string) int {
	if i := s.index(productID); i >= 0 {
		return s.Items[i].Quantity
	}
	return 0
}

func (s State) index(productID string) int {
	for i, it := range s.Items {
		if it.Product.ID == productID {
			return i
		}
	}
	return -1
}

// normalize drops non-positive lines from restored state, caps the rest at
// MaxQuantity and recomputes.
func (s *State) normalize() {
	kept := s.Items[:0]
	for _, it := range s.Items {
		if it.Quantity > 0 && it.Product.ID != "" {
			it.Quantity = min(it.Quantity, MaxQuantity)
			kept = append(kept, it)
		}
	}
	s.Items = kept
	s.recompute()
}
