// Package money provides cent-exact decimal arithmetic for ledger math.
// Every component that sums, subtracts, or computes a ratio over monetary
// amounts must route through this package.
package money

import "github.com/shopspring/decimal"

// Zero is the canonical zero amount.
var Zero = decimal.Zero

var hundred = decimal.NewFromInt(100)

// RoundCents rounds an amount to the nearest cent (half away from zero).
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Add rounds each operand to cents before summing, so repeated additions
// cannot accumulate sub-cent drift.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return RoundCents(a).Add(RoundCents(b))
}

// Sub rounds each operand to cents before subtracting.
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return RoundCents(a).Sub(RoundCents(b))
}

// Sum folds Add over any number of amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = Add(total, a)
	}
	return total
}

// SafePercent returns num/den*100 rounded to two places, or zero when the
// denominator is zero. Display-only ratios use this; analytical ratios that
// must distinguish "undefined" from "0%" use Ratio instead.
func SafePercent(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den).Mul(hundred).Round(2)
}

// Ratio returns num/den rounded to four places, or nil when the denominator
// is zero. Nil means "undefined", which renders differently from zero.
func Ratio(num, den decimal.Decimal) *decimal.Decimal {
	if den.IsZero() {
		return nil
	}
	r := num.Div(den).Round(4)
	return &r
}

// IsCents reports whether an amount has no more than two decimal places.
func IsCents(d decimal.Decimal) bool {
	scaled := d.Mul(hundred)
	return scaled.Equal(scaled.Floor())
}
