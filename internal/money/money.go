// Package money holds the fixed-point conventions shared by every amount in
// the ledger: two decimal places, half-up rounding, no floating point.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const Scale = 2

// Round rounds to Scale places. decimal.Round rounds half away from zero,
// which is half-up for the non-negative amounts the ledger stores.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// HasValidScale reports whether d carries no more than Scale decimal places.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

// Parse reads a plain decimal string such as "250.50". Exponents and more
// than Scale fractional digits are rejected.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("Parse: invalid amount %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Parse: %w", err)
	}
	if !HasValidScale(d) {
		return decimal.Zero, fmt.Errorf("Parse: %q has more than %d decimal places", s, Scale)
	}
	return d, nil
}

func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders d with exactly Scale decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
