package allocate

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"budgeteer/internal/core"
)

func weightsFrom(t *testing.T, food, home, work, fun, misc string) Weights {
	t.Helper()
	w, err := NewWeights(map[core.Category]decimal.Decimal{
		core.CategoryFood: decimal.RequireFromString(food),
		core.CategoryHome: decimal.RequireFromString(home),
		core.CategoryWork: decimal.RequireFromString(work),
		core.CategoryFun:  decimal.RequireFromString(fun),
		core.CategoryMisc: decimal.RequireFromString(misc),
	})
	if err != nil {
		t.Fatalf("new weights: %v", err)
	}
	return w
}

func TestNewWeightsValidation(t *testing.T) {
	cases := []map[core.Category]decimal.Decimal{
		{ // does not sum to 1
			core.CategoryFood: decimal.RequireFromString("0.3"),
			core.CategoryHome: decimal.RequireFromString("0.3"),
			core.CategoryWork: decimal.RequireFromString("0.15"),
			core.CategoryFun:  decimal.RequireFromString("0.15"),
			core.CategoryMisc: decimal.RequireFromString("0.2"),
		},
		{ // missing category
			core.CategoryFood: decimal.RequireFromString("0.5"),
			core.CategoryHome: decimal.RequireFromString("0.5"),
		},
		{ // negative weight
			core.CategoryFood: decimal.RequireFromString("-0.1"),
			core.CategoryHome: decimal.RequireFromString("0.4"),
			core.CategoryWork: decimal.RequireFromString("0.3"),
			core.CategoryFun:  decimal.RequireFromString("0.2"),
			core.CategoryMisc: decimal.RequireFromString("0.2"),
		},
	}
	for i, weights := range cases {
		if _, err := NewWeights(weights); !errors.Is(err, core.ErrConfiguration) {
			t.Fatalf("case %d expected configuration error, got %v", i, err)
		}
	}
}

func TestAllocateExampleFromBudgetSetup(t *testing.T) {
	// income $1000, 20% savings -> remaining $800 split .3/.3/.15/.15/.1
	w := weightsFrom(t, "0.3", "0.3", "0.15", "0.15", "0.1")
	got, err := Allocate(core.FromCents(80000), w)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	want := map[core.Category]int64{
		core.CategoryFood: 24000,
		core.CategoryHome: 24000,
		core.CategoryWork: 12000,
		core.CategoryFun:  12000,
		core.CategoryMisc: 8000,
	}
	for c, cents := range want {
		if got[c].Cents != cents {
			t.Fatalf("%s expected %d, got %d", c, cents, got[c].Cents)
		}
	}
}

func TestAllocateSumsExactly(t *testing.T) {
	w := weightsFrom(t, "0.3", "0.3", "0.15", "0.15", "0.1")
	for _, cents := range []int64{0, 1, 2, 3, 97, 101, 9999, 80000, 123457} {
		got, err := Allocate(core.FromCents(cents), w)
		if err != nil {
			t.Fatalf("allocate %d: %v", cents, err)
		}
		var sum int64
		for _, m := range got {
			if m.IsNegative() {
				t.Fatalf("allocate %d produced negative share", cents)
			}
			sum += m.Cents
		}
		if sum != cents {
			t.Fatalf("allocate %d sums to %d", cents, sum)
		}
	}
}

func TestAllocateRemainderGoesInCategoryOrder(t *testing.T) {
	// 7 cents split evenly: each truncated share is 1 cent, the leftover
	// 2 cents go to Food and Home.
	got, err := Allocate(core.FromCents(7), EqualWeights())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	wantCents := map[core.Category]int64{
		core.CategoryFood: 2,
		core.CategoryHome: 2,
		core.CategoryWork: 1,
		core.CategoryFun:  1,
		core.CategoryMisc: 1,
	}
	for c, cents := range wantCents {
		if got[c].Cents != cents {
			t.Fatalf("%s expected %d, got %d", c, cents, got[c].Cents)
		}
	}
}

func TestAllocateDeterminism(t *testing.T) {
	w := weightsFrom(t, "0.3", "0.3", "0.15", "0.15", "0.1")
	first, _ := Allocate(core.FromCents(12347), w)
	second, _ := Allocate(core.FromCents(12347), w)
	for _, c := range core.Categories() {
		if first[c] != second[c] {
			t.Fatalf("allocation for %s differs between identical calls", c)
		}
	}
}

func TestAllocateRejectsNegative(t *testing.T) {
	if _, err := Allocate(core.FromCents(-1), EqualWeights()); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
