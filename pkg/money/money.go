// Package money holds the rounding rules shared by every monetary computation.
package money

import "github.com/shopspring/decimal"

var half = decimal.NewFromFloat(0.5)

// RoundHalfUp rounds d to places decimal places. An exact half always moves
// toward positive infinity, so 12345.675 rounds to 12346 at zero places and
// -2.5 rounds to -2.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Add(half).Floor().Shift(-places)
}

// Canonical renders d in the fixed textual form used for storage and hashing.
func Canonical(d decimal.Decimal) string {
	return d.String()
}

// Percent renders ratio*100 with two decimals, half-up.
func Percent(ratio decimal.Decimal) string {
	return RoundHalfUp(ratio.Mul(decimal.NewFromInt(100)), 2).StringFixed(2)
}

// Group formats an integral amount with thousands separators.
func Group(d decimal.Decimal) string {
	s := RoundHalfUp(d, 0).String()
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
