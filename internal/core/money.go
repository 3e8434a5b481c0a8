// Package core defines the money, category, and ledger entry types shared by
// the budgeting engine.
//
// All amounts live in integer minor units (cents). Percentage and weight
// scaling routes through shopspring/decimal so that each operation rounds at
// most once, half-up, and results are never re-rounded on reads.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// Money is an exact amount in minor currency units. Negative values appear
// only in derived figures (over/under budget); stored entry amounts are
// always positive magnitudes.
type Money struct {
	Cents int64 `json:"cents"`
}

func FromCents(cents int64) Money { return Money{Cents: cents} }

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }

func (m Money) IsPositive() bool { return m.Cents > 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }
func (m Money) IsZero() bool     { return m.Cents == 0 }

// LessThan reports m < o.
func (m Money) LessThan(o Money) bool { return m.Cents < o.Cents }

// Validate enforces the positive-magnitude rule for stored amounts.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return nil
}

// ScalePercent computes m * percent / 100, rounded half-up to the minor unit.
// decimal.Round rounds half away from zero, which for the non-negative inputs
// used here is exactly half-up.
func (m Money) ScalePercent(percent decimal.Decimal) Money {
	scaled := decimal.NewFromInt(m.Cents).Mul(percent).Div(oneHundred).Round(0)
	return Money{Cents: scaled.IntPart()}
}

// ScaleWeightFloor computes m * weight truncated to the minor unit. The
// allocator truncates raw shares first and distributes the leftover minor
// units separately, so no per-category rounding bias can accumulate.
func (m Money) ScaleWeightFloor(weight decimal.Decimal) Money {
	return Money{Cents: decimal.NewFromInt(m.Cents).Mul(weight).IntPart()}
}

// String formats the amount as a dollar string, e.g. "$12.34" or "-$0.05".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Accepts dot and comma separators.
// Only positive amounts are accepted.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: signed amount", ErrInvalidInput)
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, s)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, s)
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, s)
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, fmt.Errorf("%w: amount overflow", ErrInvalidInput)
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return cents, nil
}
