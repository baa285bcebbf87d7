package cart

import "github.com/shopspring/decimal"

// Snapshot is an immutable view of the cart's line items at a point in time,
// together with the derived subtotal (sum of UnitPrice * Quantity).
//
// Every mutation produces a new Snapshot; the zero value is a valid empty
// cart.
type Snapshot struct {
	items    []LineItem
	subtotal decimal.Decimal
}

// NewSnapshot builds a snapshot from the given line items. The slice is
// copied, so the caller may reuse it.
func NewSnapshot(items []LineItem) Snapshot {
	cp := make([]LineItem, len(items))
	copy(cp, items)

	subtotal := decimal.Zero
	for _, li := range cp {
		subtotal = subtotal.Add(li.LineTotal())
	}
	return Snapshot{items: cp, subtotal: subtotal}
}

// Items returns a copy of the line items in order.
func (s Snapshot) Items() []LineItem {
	cp := make([]LineItem, len(s.items))
	copy(cp, s.items)
	return cp
}

// Item returns the line item with the given id, if present.
func (s Snapshot) Item(id string) (LineItem, bool) {
	for _, li := range s.items {
		if li.ID == id {
			return li, true
		}
	}
	return LineItem{}, false
}

// Subtotal returns the derived sum of UnitPrice * Quantity.
func (s Snapshot) Subtotal() decimal.Decimal {
	return s.subtotal
}

// ProductDiscount returns the total product-level saving across all lines.
func (s Snapshot) ProductDiscount() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range s.items {
		sum = sum.Add(li.LineDiscount())
	}
	return sum
}

// IsEmpty reports whether the snapshot has no line items.
func (s Snapshot) IsEmpty() bool {
	return len(s.items) == 0
}

// Len returns the number of line items.
func (s Snapshot) Len() int {
	return len(s.items)
}

// TotalQuantity returns the sum of quantities across all lines.
func (s Snapshot) TotalQuantity() int {
	total := 0
	for _, li := range s.items {
		total += li.Quantity
	}
	return total
}

// WithQuantity returns a new snapshot with the given item's quantity changed.
// The second return value is false when the item is not present.
func (s Snapshot) WithQuantity(id string, quantity int) (Snapshot, bool) {
	idx := -1
	for i, li := range s.items {
		if li.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, false
	}

	items := s.Items()
	items[idx].Quantity = quantity
	return NewSnapshot(items), true
}

// WithoutItem returns a new snapshot with the given item removed. Removing a
// missing item returns an equal snapshot.
func (s Snapshot) WithoutItem(id string) Snapshot {
	items := make([]LineItem, 0, len(s.items))
	for _, li := range s.items {
		if li.ID != id {
			items = append(items, li)
		}
	}
	return NewSnapshot(items)
}

// Equal reports whether two snapshots hold identical line items in the same
// order.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		if !s.items[i].Equal(other.items[i]) {
			return false
		}
	}
	return s.subtotal.Equal(other.subtotal)
}
