// Package report derives read-only views from the ledger and the budget
// snapshots: per-category totals, over/under budget figures, savings balance
// history, and period summaries. Nothing here mutates state.
package report

import (
	"errors"
	"iter"
	"time"

	"budgeteer/internal/budget"
	"budgeteer/internal/core"
	"budgeteer/internal/ledger"
)

// ErrNoSnapshot is returned by queries that need a finalized budget for the
// requested period.
var ErrNoSnapshot = errors.New("no budget snapshot for period")

type Engine struct {
	ledger    *ledger.Ledger
	snapshots *budget.Store
}

func NewEngine(l *ledger.Ledger, s *budget.Store) *Engine {
	return &Engine{ledger: l, snapshots: s}
}

// CategoryTotals sums expense entries whose timestamp falls in the period.
// Every category is present in the result, zero when nothing was spent.
func (e *Engine) CategoryTotals(period core.Period) map[core.Category]core.Money {
	totals := make(map[core.Category]core.Money, len(core.Categories()))
	for _, c := range core.Categories() {
		totals[c] = core.Money{}
	}
	for entry := range e.ledger.EntriesInRange(period.Start(), period.End()) {
		if entry.Kind == core.KindExpense {
			totals[entry.Category] = totals[entry.Category].Add(entry.Amount)
		}
	}
	return totals
}

// OverUnderBudget returns spent minus allocated per category for the
// period's current snapshot. Positive means overspent.
func (e *Engine) OverUnderBudget(period core.Period) (map[core.Category]core.Money, error) {
	snap, ok := e.snapshots.Current(period)
	if !ok {
		return nil, ErrNoSnapshot
	}
	totals := e.CategoryTotals(period)
	out := make(map[core.Category]core.Money, len(totals))
	for _, c := range core.Categories() {
		out[c] = totals[c].Sub(snap.Allocations[c])
	}
	return out, nil
}

// SavingsBalanceAsOf computes deposits minus withdrawals over entries with
// Timestamp <= ts. Entries sharing a timestamp are taken in id order, which
// is the ledger's iteration order.
func (e *Engine) SavingsBalanceAsOf(ts time.Time) core.Money {
	balance := core.Money{}
	cutoff := ts.UTC()
	for entry := range e.ledger.All() {
		if entry.Timestamp.After(cutoff) {
			continue
		}
		switch entry.Kind {
		case core.KindSavingsDeposit:
			balance = balance.Add(entry.Amount)
		case core.KindSavingsWithdrawal:
			balance = balance.Sub(entry.Amount)
		}
	}
	return balance
}

// Filter narrows a history query. Zero fields match everything.
type Filter struct {
	Category core.Category
	Kind     core.EntryKind
	From     time.Time
	To       time.Time // exclusive
}

func (f Filter) matches(e core.LedgerEntry) bool {
	if f.Category != 0 && e.Category != f.Category {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
		return false
	}
	return true
}

// History yields the entries matching the filter, in ledger order. The
// sequence is finite and restartable.
func (e *Engine) History(f Filter) iter.Seq[core.LedgerEntry] {
	all := e.ledger.All()
	return func(yield func(core.LedgerEntry) bool) {
		for entry := range all {
			if !f.matches(entry) {
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// Summary is the period overview the original tracker printed after each
// budget run: totals against the plan, savings utilization, and a daily
// spending limit while the period is still running.
type Summary struct {
	Period              core.Period                  `json:"period"`
	TotalSpent          core.Money                   `json:"total_spent"`
	SpendingBudget      core.Money                   `json:"spending_budget"`
	SpendingLeft        core.Money                   `json:"spending_left"`
	SavingsTarget       core.Money                   `json:"savings_target"`
	SavingsUsed         core.Money                   `json:"savings_used"`
	AdjustedSavingsGoal core.Money                   `json:"adjusted_savings_goal"`
	ByCategory          map[core.Category]core.Money `json:"by_category"`
	DaysLeft            int                          `json:"days_left,omitempty"`
	DailyLimit          core.Money                   `json:"daily_limit,omitempty"`
}

// PeriodSummary builds the summary for a period against its current
// snapshot. DaysLeft and DailyLimit are only set when now falls inside the
// period; the daily limit is the spending left divided by the days remaining
// in the month, truncated to the minor unit.
func (e *Engine) PeriodSummary(period core.Period, now time.Time) (Summary, error) {
	snap, ok := e.snapshots.Current(period)
	if !ok {
		return Summary{}, ErrNoSnapshot
	}

	totals := e.CategoryTotals(period)
	spent := core.Money{}
	for _, m := range totals {
		spent = spent.Add(m)
	}

	used := core.Money{}
	for entry := range e.ledger.EntriesInRange(period.Start(), period.End()) {
		if entry.Kind == core.KindSavingsWithdrawal {
			used = used.Add(entry.Amount)
		}
	}

	s := Summary{
		Period:              period,
		TotalSpent:          spent,
		SpendingBudget:      snap.SpendingBudget(),
		SpendingLeft:        snap.SpendingBudget().Sub(spent),
		SavingsTarget:       snap.SavingsTarget,
		SavingsUsed:         used,
		AdjustedSavingsGoal: snap.SavingsTarget.Sub(used),
		ByCategory:          totals,
	}

	if period.Contains(now) {
		s.DaysLeft = period.Days() - now.UTC().Day() + 1
		if s.DaysLeft > 0 {
			s.DailyLimit = core.FromCents(s.SpendingLeft.Cents / int64(s.DaysLeft))
		}
	}
	return s, nil
}
