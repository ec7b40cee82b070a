// Package core holds the ledger's domain types and the parsing rules for
// user supplied amounts and dates.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest accepted expense; its cents fit an int64 column.
var MaxAmount = decimal.New(1, 12)

// ParseAmount converts user input to a positive amount rounded to cents.
//
// Both dot (12.34) and comma (12,34) are accepted as decimal separator and the
// third fractional digit rounds half-up:
//
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("12.344") -> 12.34
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	// Only plain positive decimals; rejects signs, exponents and thousand separators.
	dots := 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
		case !unicode.IsDigit(r) || r > unicode.MaxASCII:
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if dots > 1 || s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if d.Sign() <= 0 || d.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SplitAmount divides total into n installments rounded half-up to cents.
// n below 1 is treated as a single installment.
func SplitAmount(total decimal.Decimal, n int) decimal.Decimal {
	if n < 1 {
		n = 1
	}
	return total.DivRound(decimal.NewFromInt(int64(n)), 2)
}

// ToCents is the storage representation of an amount.
func ToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// FromCents reverses ToCents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
