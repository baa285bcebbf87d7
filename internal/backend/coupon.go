package backend

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/mandir-kart/internal/domain/coupon"
)

// AvailableCoupons fetches the read-only coupon catalog.
func (c *Client) AvailableCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	var dtos []couponDTO
	if err := c.do(ctx, http.MethodGet, "/coupons/available", nil, &dtos); err != nil {
		return nil, err
	}

	out := make([]coupon.Coupon, len(dtos))
	for i, d := range dtos {
		out[i] = d.toDomain()
	}
	return out, nil
}

// ApplyCoupon records the coupon as applied to the remote cart.
func (c *Client) ApplyCoupon(ctx context.Context, code string) error {
	body := struct {
		Code string `json:"code"`
	}{Code: code}
	return c.do(ctx, http.MethodPost, "/coupons/apply", body, nil)
}

// RemoveCoupon clears the applied coupon from the remote cart.
func (c *Client) RemoveCoupon(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/coupons/remove", nil, nil)
}

// ValidateCoupon asks the backend to re-check a code against the given
// subtotal and returns the coupon descriptor on success.
func (c *Client) ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*coupon.Coupon, error) {
	body := struct {
		Code     string          `json:"code"`
		Subtotal decimal.Decimal `json:"subtotal"`
	}{Code: code, Subtotal: subtotal}

	var dto couponDTO
	if err := c.do(ctx, http.MethodPost, "/coupons/validate", body, &dto); err != nil {
		return nil, err
	}
	cp := dto.toDomain()
	return &cp, nil
}
