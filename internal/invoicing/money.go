package invoicing

import "github.com/shopspring/decimal"

// Amount arithmetic happens in integer minor units (cents); decimals exist
// only at the model/API boundary.

func toMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ceilDiv is integer division rounding toward +inf (Go's / truncates toward zero).
func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}

// grossToParts decomposes a tax-inclusive amount into net + tax at the given
// rate (0..1). Tax is rounded to cents and the net absorbs the rounding, so
// net + tax == gross exactly.
func grossToParts(gross, rate decimal.Decimal) (net, tax decimal.Decimal) {
	if rate.IsZero() || !gross.IsPositive() {
		return gross, decimal.Zero
	}
	tax = gross.Sub(gross.Div(decimal.NewFromInt(1).Add(rate))).Round(2)
	return gross.Sub(tax), tax
}
