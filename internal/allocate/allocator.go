// Package allocate splits a post-savings amount across the spending
// categories using configured weights.
package allocate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budgeteer/internal/core"
)

// Weights is a validated weight per category, applied in the fixed category
// order. Weights must sum to exactly 1; this is checked once at construction,
// not per allocation.
type Weights struct {
	byCategory map[core.Category]decimal.Decimal
}

// NewWeights validates the weight set: every spending category present,
// no extras, all non-negative, total exactly 1.
func NewWeights(weights map[core.Category]decimal.Decimal) (Weights, error) {
	total := decimal.Zero
	for _, c := range core.Categories() {
		w, ok := weights[c]
		if !ok {
			return Weights{}, fmt.Errorf("%w: missing weight for category %s", core.ErrConfiguration, c)
		}
		if w.IsNegative() {
			return Weights{}, fmt.Errorf("%w: negative weight for category %s", core.ErrConfiguration, c)
		}
		total = total.Add(w)
	}
	if len(weights) != len(core.Categories()) {
		return Weights{}, fmt.Errorf("%w: weight set has %d entries, expected %d",
			core.ErrConfiguration, len(weights), len(core.Categories()))
	}
	if !total.Equal(decimal.NewFromInt(1)) {
		return Weights{}, fmt.Errorf("%w: category weights sum to %s, expected 1",
			core.ErrConfiguration, total)
	}
	copied := make(map[core.Category]decimal.Decimal, len(weights))
	for c, w := range weights {
		copied[c] = w
	}
	return Weights{byCategory: copied}, nil
}

// EqualWeights splits evenly across all spending categories.
func EqualWeights() Weights {
	n := decimal.NewFromInt(int64(len(core.Categories())))
	weights := make(map[core.Category]decimal.Decimal, len(core.Categories()))
	for _, c := range core.Categories() {
		weights[c] = decimal.NewFromInt(1).Div(n)
	}
	// 1/5 is exact in decimal, so the sum check cannot fail.
	w, err := NewWeights(weights)
	if err != nil {
		panic(err)
	}
	return w
}

// Weight returns the configured weight for a category.
func (w Weights) Weight(c core.Category) decimal.Decimal {
	return w.byCategory[c]
}

// Allocate splits remaining across the categories. Raw shares are truncated
// to the minor unit; the leftover minor units (always < number of categories)
// are handed out one at a time in the fixed category order. The result sums
// to remaining exactly, and identical inputs always produce identical output.
func Allocate(remaining core.Money, weights Weights) (map[core.Category]core.Money, error) {
	if remaining.IsNegative() {
		return nil, fmt.Errorf("%w: remaining amount must be non-negative", core.ErrInvalidInput)
	}

	order := core.Categories()
	out := make(map[core.Category]core.Money, len(order))
	assigned := core.Money{}
	for _, c := range order {
		share := remaining.ScaleWeightFloor(weights.Weight(c))
		out[c] = share
		assigned = assigned.Add(share)
	}

	leftover := remaining.Sub(assigned).Cents
	for i := 0; leftover > 0; i++ {
		c := order[i%len(order)]
		out[c] = out[c].Add(core.FromCents(1))
		leftover--
	}
	return out, nil
}
