package voucher

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places discounts are rounded to.
// Prices are whole rupiah.
const Precision int32 = 0

var hundred = decimal.NewFromInt(100)

// Compute returns the discount v grants on subtotal, rounded to Precision and
// clamped to [0, subtotal]. Eligibility is not checked here.
func Compute(v *Voucher, subtotal decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch v.DiscountType {
	case DiscountPercentage:
		amount = subtotal.Mul(v.DiscountValue).Div(hundred)
		if v.MaxDiscount != nil {
			amount = decimal.Min(amount, *v.MaxDiscount)
		}
	case DiscountFixed:
		amount = v.DiscountValue
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", v.DiscountType)
	}
	return clamp(amount.Round(Precision), subtotal), nil
}

// clamp limits amount to [0, max(subtotal, 0)].
func clamp(amount, subtotal decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() || subtotal.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, subtotal)
}
