package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func item(id string, price string, qty, stock int) LineItem {
	return LineItem{
		ID:                id,
		ProductRef:        "p-" + id,
		UnitPrice:         d(price),
		OriginalUnitPrice: d(price),
		Quantity:          qty,
		AvailableStock:    stock,
	}
}

func TestLineItem_Validate(t *testing.T) {
	tests := []struct {
		name    string
		item    LineItem
		wantErr error
	}{
		{name: "valid", item: item("a", "100", 2, 5)},
		{name: "quantity at stock limit", item: item("a", "100", 5, 5)},
		{name: "zero quantity", item: item("a", "100", 0, 5), wantErr: ErrQuantityTooLow},
		{name: "negative quantity", item: item("a", "100", -1, 5), wantErr: ErrQuantityTooLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLineItem_Validate_StockExceeded(t *testing.T) {
	li := item("rudraksha", "250", 6, 4)

	err := li.Validate()
	require.Error(t, err)

	var stockErr *StockExceededError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "rudraksha", stockErr.ItemID)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 4, stockErr.Available)
}

func TestLineItem_Validate_PriceAboveOriginal(t *testing.T) {
	li := item("a", "100", 1, 5)
	li.OriginalUnitPrice = d("90")

	require.Error(t, li.Validate())
}

func TestLineItem_LineTotal(t *testing.T) {
	li := item("a", "149.50", 3, 10)
	assert.True(t, li.LineTotal().Equal(d("448.50")))
}

func TestLineItem_LineDiscount(t *testing.T) {
	li := item("a", "900", 2, 10)
	li.OriginalUnitPrice = d("1000")
	assert.True(t, li.LineDiscount().Equal(d("200")))

	undiscounted := item("b", "500", 3, 10)
	assert.True(t, undiscounted.LineDiscount().IsZero())
}

func TestSnapshot_Subtotal(t *testing.T) {
	snap := NewSnapshot([]LineItem{
		item("a", "100", 2, 10),
		item("b", "49.50", 1, 10),
	})

	assert.True(t, snap.Subtotal().Equal(d("249.50")))
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 3, snap.TotalQuantity())
	assert.False(t, snap.IsEmpty())
}

func TestSnapshot_ZeroValueIsEmptyCart(t *testing.T) {
	var snap Snapshot

	assert.True(t, snap.IsEmpty())
	assert.Equal(t, 0, snap.Len())
	assert.True(t, snap.Subtotal().IsZero())
	assert.Empty(t, snap.Items())
}

func TestSnapshot_Item(t *testing.T) {
	snap := NewSnapshot([]LineItem{item("a", "100", 1, 5)})

	got, ok := snap.Item("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	_, ok = snap.Item("missing")
	assert.False(t, ok)
}

func TestSnapshot_WithQuantity(t *testing.T) {
	original := NewSnapshot([]LineItem{
		item("a", "100", 2, 10),
		item("b", "50", 1, 10),
	})

	updated, ok := original.WithQuantity("a", 5)
	require.True(t, ok)

	// The original is untouched.
	origItem, _ := original.Item("a")
	assert.Equal(t, 2, origItem.Quantity)
	assert.True(t, original.Subtotal().Equal(d("250")))

	newItem, _ := updated.Item("a")
	assert.Equal(t, 5, newItem.Quantity)
	assert.True(t, updated.Subtotal().Equal(d("550")))
}

func TestSnapshot_WithQuantity_MissingItem(t *testing.T) {
	snap := NewSnapshot([]LineItem{item("a", "100", 1, 5)})

	got, ok := snap.WithQuantity("missing", 3)
	assert.False(t, ok)
	assert.True(t, got.Equal(snap))
}

func TestSnapshot_WithoutItem(t *testing.T) {
	snap := NewSnapshot([]LineItem{
		item("a", "100", 1, 5),
		item("b", "50", 2, 5),
	})

	removed := snap.WithoutItem("a")
	assert.Equal(t, 1, removed.Len())
	assert.True(t, removed.Subtotal().Equal(d("100")))
	_, ok := removed.Item("a")
	assert.False(t, ok)

	// Removing a missing item is a no-op.
	same := snap.WithoutItem("missing")
	assert.True(t, same.Equal(snap))
}

func TestSnapshot_ProductDiscount(t *testing.T) {
	discounted := item("a", "900", 2, 10)
	discounted.OriginalUnitPrice = d("1000")

	snap := NewSnapshot([]LineItem{
		discounted,
		item("b", "500", 1, 10),
	})

	assert.True(t, snap.ProductDiscount().Equal(d("200")))
}

func TestSnapshot_Equal(t *testing.T) {
	a := NewSnapshot([]LineItem{item("a", "100", 2, 10)})
	b := NewSnapshot([]LineItem{item("a", "100.00", 2, 10)})
	c := NewSnapshot([]LineItem{item("a", "100", 3, 10)})

	// Decimal fields compare by value.
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(NewSnapshot(nil)))
}

func TestSnapshot_ItemsIsACopy(t *testing.T) {
	snap := NewSnapshot([]LineItem{item("a", "100", 2, 10)})

	items := snap.Items()
	items[0].Quantity = 99

	got, _ := snap.Item("a")
	assert.Equal(t, 2, got.Quantity)
}
