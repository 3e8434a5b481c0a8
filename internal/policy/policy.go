// Package policy computes the recommended savings target for an income
// figure and explains how it was derived.
package policy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budgeteer/internal/core"
)

// Policy holds the configured default savings rate. The rate is supplied by
// configuration, never hardcoded.
type Policy struct {
	rate decimal.Decimal // percent, in (0,100)
}

// New validates the rate once at construction.
func New(ratePercent decimal.Decimal) (Policy, error) {
	if !ratePercent.IsPositive() || ratePercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return Policy{}, fmt.Errorf("%w: savings rate must be in (0,100), got %s",
			core.ErrConfiguration, ratePercent)
	}
	return Policy{rate: ratePercent}, nil
}

// RatePercent returns the configured rate.
func (p Policy) RatePercent() decimal.Decimal { return p.rate }

// Recommend computes target = round(income * rate / 100) and an explanation
// of the formula. The text is a pure function of (income, rate): repeated
// calls with the same input produce the same bytes.
func (p Policy) Recommend(income core.Money) (core.Money, string, error) {
	if !income.IsPositive() {
		return core.Money{}, "", fmt.Errorf("%w: income must be positive", core.ErrInvalidInput)
	}
	target := income.ScalePercent(p.rate)
	explanation := fmt.Sprintf("Recommended savings = %s%% of income (%s) = %s",
		p.rate.String(), income, target)
	return target, explanation, nil
}

// ApplyOverride resolves the effective savings target. A nil override keeps
// the recommendation; a present override must be non-negative and must not
// exceed income (you cannot save more than you have).
func (p Policy) ApplyOverride(income, recommended core.Money, override *core.Money) (core.Money, error) {
	if override == nil {
		return recommended, nil
	}
	if override.IsNegative() {
		return core.Money{}, fmt.Errorf("%w: savings override must be non-negative", core.ErrInvalidInput)
	}
	if income.LessThan(*override) {
		return core.Money{}, fmt.Errorf("%w: savings override %s exceeds income %s",
			core.ErrInvalidInput, override, income)
	}
	return *override, nil
}
