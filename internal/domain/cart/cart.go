package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for local cart validation. These are raised before any
// network round trip is issued.
var (
	ErrQuantityTooLow = errors.New("quantity must be at least 1")
	ErrItemNotFound   = errors.New("cart item not found")
)

// StockExceededError indicates a requested quantity above the available stock
// for a line item.
type StockExceededError struct {
	ItemID    string
	Requested int
	Available int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("requested quantity %d exceeds available stock %d for item %s",
		e.Requested, e.Available, e.ItemID)
}

// LineItem represents a single purchasable line in the cart.
//
// UnitPrice is the effective (possibly discounted) price; OriginalUnitPrice
// is the list price before any product-level discount. Invariants:
// 1 <= Quantity <= AvailableStock and UnitPrice <= OriginalUnitPrice.
type LineItem struct {
	ID                  string
	ProductRef          string
	Name                string
	UnitPrice           decimal.Decimal
	OriginalUnitPrice   decimal.Decimal
	Quantity            int
	AvailableStock      int
	LineDiscountPercent decimal.Decimal
}

// Validate checks the line item invariants.
func (li LineItem) Validate() error {
	if li.Quantity < 1 {
		return ErrQuantityTooLow
	}
	if li.Quantity > li.AvailableStock {
		return &StockExceededError{ItemID: li.ID, Requested: li.Quantity, Available: li.AvailableStock}
	}
	if li.UnitPrice.GreaterThan(li.OriginalUnitPrice) {
		return errors.Errorf("unit price %s above original price %s for item %s",
			li.UnitPrice, li.OriginalUnitPrice, li.ID)
	}
	return nil
}

// LineTotal returns UnitPrice * Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// LineDiscount returns the product-level saving already reflected in
// UnitPrice: Quantity * (OriginalUnitPrice - UnitPrice). Never negative.
func (li LineItem) LineDiscount() decimal.Decimal {
	diff := li.OriginalUnitPrice.Sub(li.UnitPrice)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Equal reports whether two line items are identical field-for-field.
// Decimal fields compare by value, not representation.
func (li LineItem) Equal(other LineItem) bool {
	return li.ID == other.ID &&
		li.ProductRef == other.ProductRef &&
		li.Name == other.Name &&
		li.Quantity == other.Quantity &&
		li.AvailableStock == other.AvailableStock &&
		li.UnitPrice.Equal(other.UnitPrice) &&
		li.OriginalUnitPrice.Equal(other.OriginalUnitPrice) &&
		li.LineDiscountPercent.Equal(other.LineDiscountPercent)
}
