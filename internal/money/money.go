// Package money renders integer cent amounts for people and parses them back.
// Aggregation never touches this package; formatting happens at the edge.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid money amount")

var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
}

// Format renders cents as a display string such as "€123.45" or "-$0.50".
// Currencies without a known symbol are prefixed with their code.
func Format(cents int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	sign := ""
	amount := decimal.New(cents, -2)
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	if symbol, ok := symbols[currency]; ok {
		return sign + symbol + amount.StringFixed(2)
	}
	if currency == "" {
		return sign + amount.StringFixed(2)
	}
	return sign + currency + " " + amount.StringFixed(2)
}

// Parse reads a value produced by Format, tolerating thousands separators,
// and returns it in cents.
func Parse(display string) (int64, error) {
	s := strings.TrimSpace(display)
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}
	for _, symbol := range symbols {
		s = strings.TrimPrefix(s, symbol)
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[i+1:]
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, display)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, display)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, display)
	}
	cents := amount.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: %q has sub-cent precision", ErrInvalidAmount, display)
	}
	if negative {
		cents = cents.Neg()
	}
	return cents.IntPart(), nil
}
