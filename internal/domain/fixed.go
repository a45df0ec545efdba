package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// FixedDigits is the number of decimal digits carried by every price and
// quantity on the wire and inside the engine.
const FixedDigits = 8

// FixedScale is 10^FixedDigits: the integer value 1 * FixedScale represents
// the decimal value 1.
const FixedScale int64 = 100_000_000

var (
	maxFixed = decimal.NewFromInt(math.MaxInt64)
	minFixed = decimal.NewFromInt(math.MinInt64)
)

// ParseFixed converts a decimal string such as "101.25" to its scaled
// integer representation. It rejects values with more than FixedDigits
// fractional digits and values that do not fit in an int64 once scaled.
func ParseFixed(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	return FromDecimal(d)
}

// FromDecimal scales d by FixedScale. See ParseFixed for the rejection rules.
func FromDecimal(d decimal.Decimal) (int64, error) {
	scaled := d.Shift(FixedDigits)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("at most %d decimal places are allowed", FixedDigits)
	}
	if scaled.GreaterThan(maxFixed) || scaled.LessThan(minFixed) {
		return 0, fmt.Errorf("value %s is out of range", d.String())
	}
	return scaled.IntPart(), nil
}

// ToDecimal converts a scaled integer back to its decimal value.
func ToDecimal(v int64) decimal.Decimal {
	return decimal.New(v, -FixedDigits)
}

// FormatFixed renders a scaled integer as a plain decimal string without
// trailing zeros ("1.5", "100", "0.00000001").
func FormatFixed(v int64) string {
	return ToDecimal(v).String()
}
