package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/mandir-kart/internal/domain/cart"
	"github.com/xenking/mandir-kart/internal/domain/coupon"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

// snapshotWithSubtotal builds a one-line cart with the given subtotal.
func snapshotWithSubtotal(subtotal string) cart.Snapshot {
	return cart.NewSnapshot([]cart.LineItem{
		{
			ID:                "li-1",
			ProductRef:        "p1",
			UnitPrice:         d(subtotal),
			OriginalUnitPrice: d(subtotal),
			Quantity:          1,
			AvailableStock:    10,
		},
	})
}

func TestCompute(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name             string
		snap             cart.Snapshot
		coupon           *coupon.Coupon
		method           Method
		wantCouponDisc   decimal.Decimal
		wantPaymentDisc  decimal.Decimal
		wantSurcharge    decimal.Decimal
		wantShipping     decimal.Decimal
		wantTotal        decimal.Decimal
	}{
		{
			// Subtotal 1800, prepaid: 100 shipping below threshold, 5% discount.
			name:            "prepaid below free shipping threshold",
			snap:            snapshotWithSubtotal("1800"),
			method:          MethodPrepaid,
			wantCouponDisc:  d("0"),
			wantPaymentDisc: d("90"),
			wantSurcharge:   d("0"),
			wantShipping:    d("100"),
			wantTotal:       d("1810"),
		},
		{
			// Subtotal 2500, fixed 300 coupon, COD: free shipping, 50 surcharge.
			name: "fixed coupon with cod surcharge",
			snap: snapshotWithSubtotal("2500"),
			coupon: &coupon.Coupon{
				Code:  "FLAT300",
				Kind:  coupon.KindFixed,
				Value: d("300"),
			},
			method:          MethodCashOnDelivery,
			wantCouponDisc:  d("300"),
			wantPaymentDisc: d("0"),
			wantSurcharge:   d("50"),
			wantShipping:    d("0"),
			wantTotal:       d("2250"),
		},
		{
			// Subtotal 1000, 50% coupon capped at 300.
			name: "percent coupon capped by max discount",
			snap: snapshotWithSubtotal("1000"),
			coupon: &coupon.Coupon{
				Code:              "HALF",
				Kind:              coupon.KindPercent,
				Value:             d("50"),
				MaxDiscountAmount: dp("300"),
			},
			method:          MethodCashOnDelivery,
			wantCouponDisc:  d("300"),
			wantPaymentDisc: d("0"),
			wantSurcharge:   d("50"),
			wantShipping:    d("100"),
			wantTotal:       d("850"),
		},
		{
			// Coupon below its minimum contributes zero.
			name: "inapplicable coupon contributes zero",
			snap: snapshotWithSubtotal("2000"),
			coupon: &coupon.Coupon{
				Code:           "MIN5000",
				Kind:           coupon.KindFixed,
				Value:          d("500"),
				MinOrderAmount: dp("5000"),
			},
			method:          MethodPrepaid,
			wantCouponDisc:  d("0"),
			wantPaymentDisc: d("100"),
			wantSurcharge:   d("0"),
			wantShipping:    d("0"),
			wantTotal:       d("1900"),
		},
		{
			name:            "exactly at free shipping threshold",
			snap:            snapshotWithSubtotal("2000"),
			method:          MethodCashOnDelivery,
			wantCouponDisc:  d("0"),
			wantPaymentDisc: d("0"),
			wantSurcharge:   d("50"),
			wantShipping:    d("0"),
			wantTotal:       d("2050"),
		},
		{
			name:            "one below free shipping threshold",
			snap:            snapshotWithSubtotal("1999"),
			method:          MethodCashOnDelivery,
			wantCouponDisc:  d("0"),
			wantPaymentDisc: d("0"),
			wantSurcharge:   d("50"),
			wantShipping:    d("100"),
			wantTotal:       d("2149"),
		},
		{
			// Fixed coupon larger than the subtotal is capped; total never
			// goes negative.
			name: "oversized fixed coupon clamps at zero",
			snap: snapshotWithSubtotal("40"),
			coupon: &coupon.Coupon{
				Code:  "BIG",
				Kind:  coupon.KindFixed,
				Value: d("500"),
			},
			method:          MethodPrepaid,
			wantCouponDisc:  d("40"),
			wantPaymentDisc: d("2"),
			wantSurcharge:   d("0"),
			wantShipping:    d("100"),
			wantTotal:       d("98"),
		},
		{
			name:            "empty cart computes zero subtotal",
			snap:            cart.NewSnapshot(nil),
			method:          MethodPrepaid,
			wantCouponDisc:  d("0"),
			wantPaymentDisc: d("0"),
			wantSurcharge:   d("0"),
			wantShipping:    d("100"),
			wantTotal:       d("100"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.snap, tt.coupon, tt.method, policy)

			assert.True(t, got.CouponDiscount.Equal(tt.wantCouponDisc),
				"coupon discount: got %s want %s", got.CouponDiscount, tt.wantCouponDisc)
			assert.True(t, got.PaymentDiscount.Equal(tt.wantPaymentDisc),
				"payment discount: got %s want %s", got.PaymentDiscount, tt.wantPaymentDisc)
			assert.True(t, got.PaymentSurcharge.Equal(tt.wantSurcharge),
				"payment surcharge: got %s want %s", got.PaymentSurcharge, tt.wantSurcharge)
			assert.True(t, got.ShippingFee.Equal(tt.wantShipping),
				"shipping fee: got %s want %s", got.ShippingFee, tt.wantShipping)
			assert.True(t, got.Total.Equal(tt.wantTotal),
				"total: got %s want %s", got.Total, tt.wantTotal)
			assert.False(t, got.Total.IsNegative(), "total must never be negative")
		})
	}
}

func TestCompute_ProductDiscountIsInformational(t *testing.T) {
	// Unit price already reflects the product discount; the total must not
	// subtract it a second time.
	snap := cart.NewSnapshot([]cart.LineItem{
		{
			ID:                "li-1",
			UnitPrice:         d("900"),
			OriginalUnitPrice: d("1000"),
			Quantity:          2,
			AvailableStock:    5,
		},
	})

	got := Compute(snap, nil, MethodCashOnDelivery, DefaultPolicy())

	require.True(t, got.Subtotal.Equal(d("1800")))
	require.True(t, got.ProductDiscount.Equal(d("200")))
	// 1800 + 50 surcharge + 100 shipping.
	require.True(t, got.Total.Equal(d("1950")), "got total %s", got.Total)
}

func TestCompute_Idempotent(t *testing.T) {
	snap := snapshotWithSubtotal("1234.56")
	c := &coupon.Coupon{Code: "TEN", Kind: coupon.KindPercent, Value: d("10")}

	first := Compute(snap, c, MethodPrepaid, DefaultPolicy())
	second := Compute(snap, c, MethodPrepaid, DefaultPolicy())

	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.CouponDiscount.Equal(second.CouponDiscount))
}

func TestTotals_MinorUnits(t *testing.T) {
	tests := []struct {
		total string
		want  int64
	}{
		{"1810", 181000},
		{"2250.50", 225050},
		{"0", 0},
		{"99.99", 9999},
	}
	for _, tt := range tests {
		got := Totals{Total: d(tt.total)}.MinorUnits()
		assert.Equal(t, tt.want, got, "total %s", tt.total)
	}
}

func TestMethod_Valid(t *testing.T) {
	assert.True(t, MethodPrepaid.Valid())
	assert.True(t, MethodCashOnDelivery.Valid())
	assert.False(t, Method("wallet").Valid())
}
