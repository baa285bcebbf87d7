package coupon

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported coupon discount strategies.
type Kind string

const (
	// KindFixed subtracts a fixed monetary amount, capped at the subtotal.
	KindFixed Kind = "fixed"
	// KindPercent subtracts a percentage of the subtotal, optionally capped
	// by MaxDiscountAmount.
	KindPercent Kind = "percent"
)

// Coupon lifecycle errors. Each is a distinct user-facing condition.
var (
	// ErrInvalidFormat is returned when a code is empty or shorter than
	// three characters after trimming.
	ErrInvalidFormat = errors.New("coupon code must be at least 3 characters")
	// ErrNotFound is returned when no coupon exists for the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when the coupon is outside its validity window.
	ErrExpired = errors.New("coupon expired")
	// ErrNotApplicable is returned when the cart subtotal is below the
	// coupon's minimum order amount.
	ErrNotApplicable = errors.New("order amount below coupon minimum")
	// ErrAlreadyApplied is returned when the code is already the active coupon.
	ErrAlreadyApplied = errors.New("coupon already applied")
	// ErrNoLongerValid is returned at submission time when the active coupon
	// stopped being applicable to the latest cart.
	ErrNoLongerValid = errors.New("applied coupon is no longer valid")
)

var hundred = decimal.NewFromInt(100)

// Coupon describes a discount code from the remote catalog. Codes are unique
// and case-insensitive; they are stored upper-cased.
type Coupon struct {
	Code              string
	Kind              Kind
	Value             decimal.Decimal
	MinOrderAmount    *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	Description       string
	ValidUntil        *time.Time
}

// NormalizeCode trims surrounding whitespace and upper-cases the code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode normalizes the code and checks the minimum format rules.
func ValidateCode(code string) (string, error) {
	norm := NormalizeCode(code)
	if len(norm) < 3 {
		return "", ErrInvalidFormat
	}
	return norm, nil
}

// ApplicableTo reports whether the minimum-order condition is met by the
// given subtotal. Coupons without a minimum are always applicable.
func (c Coupon) ApplicableTo(subtotal decimal.Decimal) bool {
	if c.MinOrderAmount == nil {
		return true
	}
	return subtotal.GreaterThanOrEqual(*c.MinOrderAmount)
}

// Expired reports whether the coupon's validity window has passed at the
// given instant. Coupons without ValidUntil never expire.
func (c Coupon) Expired(now time.Time) bool {
	return c.ValidUntil != nil && now.After(*c.ValidUntil)
}

// DiscountFor computes the discount this coupon contributes for the given
// subtotal. It does not check applicability; callers compute zero for
// inapplicable coupons. The result is clamped to [0, subtotal] and rounded
// to two decimal places. MaxDiscountAmount only constrains percent coupons.
func (c Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Kind {
	case KindFixed:
		amount = decimal.Min(c.Value, subtotal)
	case KindPercent:
		amount = subtotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscountAmount != nil {
			amount = decimal.Min(amount, *c.MaxDiscountAmount)
		}
		amount = decimal.Min(amount, subtotal)
	default:
		return decimal.Zero
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}
