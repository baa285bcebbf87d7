// Package pricing computes order totals from a cart snapshot, an optional
// coupon, and the selected payment method. Computation is pure: no IO, no
// side effects, safe to re-run on every input change.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/mandir-kart/internal/domain/cart"
	"github.com/xenking/mandir-kart/internal/domain/coupon"
)

// Method selects how the order is paid. Exactly one method is active per
// checkout session.
type Method string

const (
	// MethodPrepaid pays through the gateway handshake and earns a
	// proportional discount.
	MethodPrepaid Method = "prepaid"
	// MethodCashOnDelivery pays at the door and carries a flat surcharge.
	MethodCashOnDelivery Method = "cod"
)

// Valid reports whether the method is one of the known values.
func (m Method) Valid() bool {
	return m == MethodPrepaid || m == MethodCashOnDelivery
}

// Policy holds the pricing knobs that are fixed per deployment.
type Policy struct {
	// FreeShippingThreshold is the subtotal at or above which shipping is free.
	FreeShippingThreshold decimal.Decimal
	// FlatShippingFee applies below the free shipping threshold.
	FlatShippingFee decimal.Decimal
	// PrepaidDiscountRate is the fraction of the subtotal discounted for
	// prepaid orders, e.g. 0.05 for 5%.
	PrepaidDiscountRate decimal.Decimal
	// CODSurcharge is the flat fee added to cash-on-delivery orders.
	CODSurcharge decimal.Decimal
}

// DefaultPolicy returns the observed storefront policy: free shipping at
// Rs 2000, Rs 100 flat fee below it, 5% prepaid discount, Rs 50 COD surcharge.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(2000),
		FlatShippingFee:       decimal.NewFromInt(100),
		PrepaidDiscountRate:   decimal.RequireFromString("0.05"),
		CODSurcharge:          decimal.NewFromInt(50),
	}
}

// Totals is the derived pricing breakdown for one (snapshot, coupon, method)
// triple. It is recomputed on every input change and never persisted.
type Totals struct {
	Subtotal decimal.Decimal
	// ProductDiscount is the saving already reflected in unit prices,
	// reported for display; it is not subtracted again from the subtotal.
	ProductDiscount  decimal.Decimal
	CouponDiscount   decimal.Decimal
	PaymentDiscount  decimal.Decimal
	PaymentSurcharge decimal.Decimal
	ShippingFee      decimal.Decimal
	Total            decimal.Decimal
}

// MinorUnits returns the grand total in minor currency units (paise),
// truncated. This is the exact integer handed to the payment gateway.
func (t Totals) MinorUnits() int64 {
	return t.Total.Mul(decimal.NewFromInt(100)).IntPart()
}

// Compute derives the full totals breakdown.
//
// The coupon contributes zero when nil or when its minimum-order condition is
// not met by the subtotal. The grand total is clamped at zero and rounded to
// two decimal places.
func Compute(snap cart.Snapshot, c *coupon.Coupon, method Method, policy Policy) Totals {
	subtotal := snap.Subtotal()

	couponDiscount := decimal.Zero
	if c != nil && c.ApplicableTo(subtotal) {
		couponDiscount = c.DiscountFor(subtotal)
	}

	shippingFee := decimal.Zero
	if subtotal.LessThan(policy.FreeShippingThreshold) {
		shippingFee = policy.FlatShippingFee
	}

	paymentDiscount := decimal.Zero
	paymentSurcharge := decimal.Zero
	switch method {
	case MethodPrepaid:
		paymentDiscount = subtotal.Mul(policy.PrepaidDiscountRate).Round(2)
	case MethodCashOnDelivery:
		paymentSurcharge = policy.CODSurcharge
	}

	total := subtotal.
		Sub(couponDiscount).
		Sub(paymentDiscount).
		Add(paymentSurcharge).
		Add(shippingFee)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:         subtotal,
		ProductDiscount:  snap.ProductDiscount(),
		CouponDiscount:   couponDiscount,
		PaymentDiscount:  paymentDiscount,
		PaymentSurcharge: paymentSurcharge,
		ShippingFee:      shippingFee,
		Total:            total.Round(2),
	}
}
