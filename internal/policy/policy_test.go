package policy

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"budgeteer/internal/core"
)

func mustPolicy(t *testing.T, rate string) Policy {
	t.Helper()
	p, err := New(decimal.RequireFromString(rate))
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	return p
}

func TestNewRejectsBadRates(t *testing.T) {
	for _, rate := range []string{"0", "-5", "100", "150"} {
		if _, err := New(decimal.RequireFromString(rate)); !errors.Is(err, core.ErrConfiguration) {
			t.Fatalf("rate %s expected configuration error, got %v", rate, err)
		}
	}
}

func TestRecommend(t *testing.T) {
	p := mustPolicy(t, "20")

	target, explanation, err := p.Recommend(core.FromCents(100000))
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if target.Cents != 20000 {
		t.Fatalf("expected 20000 cents, got %d", target.Cents)
	}
	want := "Recommended savings = 20% of income ($1000.00) = $200.00"
	if explanation != want {
		t.Fatalf("explanation %q, want %q", explanation, want)
	}

	// Determinism: identical input, identical bytes.
	again, explanation2, _ := p.Recommend(core.FromCents(100000))
	if again != target || explanation2 != explanation {
		t.Fatalf("recommend is not reproducible")
	}
}

func TestRecommendRejectsNonPositiveIncome(t *testing.T) {
	p := mustPolicy(t, "20")
	for _, cents := range []int64{0, -100} {
		if _, _, err := p.Recommend(core.FromCents(cents)); !errors.Is(err, core.ErrInvalidInput) {
			t.Fatalf("income %d expected invalid input, got %v", cents, err)
		}
	}
}

func TestApplyOverride(t *testing.T) {
	p := mustPolicy(t, "20")
	income := core.FromCents(100000)
	recommended := core.FromCents(20000)

	if got, err := p.ApplyOverride(income, recommended, nil); err != nil || got != recommended {
		t.Fatalf("nil override expected recommendation, got %v (err=%v)", got, err)
	}

	override := core.FromCents(50000)
	if got, err := p.ApplyOverride(income, recommended, &override); err != nil || got != override {
		t.Fatalf("override expected %v, got %v (err=%v)", override, got, err)
	}

	zero := core.FromCents(0)
	if got, err := p.ApplyOverride(income, recommended, &zero); err != nil || got != zero {
		t.Fatalf("zero override is allowed, got %v (err=%v)", got, err)
	}

	tooBig := core.FromCents(100001)
	if _, err := p.ApplyOverride(income, recommended, &tooBig); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("override above income expected invalid input, got %v", err)
	}

	negative := core.FromCents(-1)
	if _, err := p.ApplyOverride(income, recommended, &negative); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("negative override expected invalid input, got %v", err)
	}
}
