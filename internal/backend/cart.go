package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/mandir-kart/internal/domain/cart"
	"github.com/xenking/mandir-kart/internal/domain/coupon"
)

type lineItemDTO struct {
	ID                  string          `json:"id"`
	ProductRef          string          `json:"productRef"`
	Name                string          `json:"name"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	OriginalUnitPrice   decimal.Decimal `json:"originalUnitPrice"`
	Quantity            int             `json:"quantity"`
	AvailableStock      int             `json:"availableStock"`
	LineDiscountPercent decimal.Decimal `json:"lineDiscountPercent"`
}

func (d lineItemDTO) toDomain() cart.LineItem {
	return cart.LineItem{
		ID:                  d.ID,
		ProductRef:          d.ProductRef,
		Name:                d.Name,
		UnitPrice:           d.UnitPrice,
		OriginalUnitPrice:   d.OriginalUnitPrice,
		Quantity:            d.Quantity,
		AvailableStock:      d.AvailableStock,
		LineDiscountPercent: d.LineDiscountPercent,
	}
}

type couponDTO struct {
	Code              string           `json:"code"`
	Kind              string           `json:"kind"`
	Value             decimal.Decimal  `json:"value"`
	MinOrderAmount    *decimal.Decimal `json:"minOrderAmount,omitempty"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	Description       string           `json:"description,omitempty"`
	ValidUntil        *time.Time       `json:"validUntil,omitempty"`
}

func (d couponDTO) toDomain() coupon.Coupon {
	return coupon.Coupon{
		Code:              coupon.NormalizeCode(d.Code),
		Kind:              coupon.Kind(d.Kind),
		Value:             d.Value,
		MinOrderAmount:    d.MinOrderAmount,
		MaxDiscountAmount: d.MaxDiscountAmount,
		Description:       d.Description,
		ValidUntil:        d.ValidUntil,
	}
}

type cartDTO struct {
	Items    []lineItemDTO   `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Coupon   *couponDTO      `json:"coupon,omitempty"`
}

type mutationDTO struct {
	Subtotal decimal.Decimal `json:"subtotal"`
}

// FetchCart loads the remote cart wholesale: line items plus the applied
// coupon descriptor, if any.
func (c *Client) FetchCart(ctx context.Context) (cart.Snapshot, *coupon.Coupon, error) {
	var dto cartDTO
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &dto); err != nil {
		return cart.Snapshot{}, nil, err
	}

	items := make([]cart.LineItem, len(dto.Items))
	for i, it := range dto.Items {
		items[i] = it.toDomain()
	}

	var applied *coupon.Coupon
	if dto.Coupon != nil {
		cp := dto.Coupon.toDomain()
		applied = &cp
	}
	return cart.NewSnapshot(items), applied, nil
}

// SetItemQuantity sets (or upserts) the quantity of one cart line and
// returns the subtotal the remote computed.
func (c *Client) SetItemQuantity(ctx context.Context, itemID string, quantity int) (decimal.Decimal, error) {
	var dto mutationDTO
	path := "/cart/item/" + url.PathEscape(itemID) + "/quantity"
	body := struct {
		Quantity int `json:"quantity"`
	}{Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, path, body, &dto); err != nil {
		return decimal.Zero, err
	}
	return dto.Subtotal, nil
}

// RemoveItem deletes one cart line and returns the remote subtotal.
func (c *Client) RemoveItem(ctx context.Context, itemID string) (decimal.Decimal, error) {
	var dto mutationDTO
	path := "/cart/item/" + url.PathEscape(itemID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &dto); err != nil {
		return decimal.Zero, err
	}
	return dto.Subtotal, nil
}

// ClearCart empties the remote cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart", nil, nil)
}
