// Package budget produces and stores the immutable per-period budget
// snapshots: income, savings target, explanation, and category allocations.
package budget

import (
	"fmt"
	"sync"
	"time"

	"budgeteer/internal/allocate"
	"budgeteer/internal/core"
	"budgeteer/internal/policy"
)

// Snapshot is the finalized budget for one period. It is never mutated;
// re-running budgeting for the same period stores a new snapshot and flags
// the old one superseded.
type Snapshot struct {
	Period        core.Period                  `json:"period"`
	Income        core.Money                   `json:"income"`
	SavingsTarget core.Money                   `json:"savings_target"`
	Explanation   string                       `json:"explanation"`
	Allocations   map[core.Category]core.Money `json:"allocations"`
	CreatedAt     time.Time                    `json:"created_at"`
	Superseded    bool                         `json:"superseded"`
}

// SpendingBudget returns income minus the savings target.
func (s Snapshot) SpendingBudget() core.Money {
	return s.Income.Sub(s.SavingsTarget)
}

// Planner combines the savings policy and the category weights.
type Planner struct {
	policy  policy.Policy
	weights allocate.Weights
}

func NewPlanner(p policy.Policy, w allocate.Weights) Planner {
	return Planner{policy: p, weights: w}
}

// Plan turns an income figure (and optional savings override) into a
// snapshot for the given period. The invariant
// sum(allocations) + savings target == income holds exactly.
func (pl Planner) Plan(period core.Period, income core.Money, override *core.Money, now time.Time) (Snapshot, error) {
	if err := period.Validate(); err != nil {
		return Snapshot{}, err
	}
	recommended, explanation, err := pl.policy.Recommend(income)
	if err != nil {
		return Snapshot{}, err
	}
	target, err := pl.policy.ApplyOverride(income, recommended, override)
	if err != nil {
		return Snapshot{}, err
	}
	allocations, err := allocate.Allocate(income.Sub(target), pl.weights)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Period:        period,
		Income:        income,
		SavingsTarget: target,
		Explanation:   explanation,
		Allocations:   allocations,
		CreatedAt:     now.UTC(),
	}, nil
}

// Store keeps at most one current snapshot per period, retaining superseded
// ones for history.
type Store struct {
	mu       sync.RWMutex
	byPeriod map[core.Period][]Snapshot
}

func NewStore() *Store {
	return &Store{byPeriod: make(map[core.Period][]Snapshot)}
}

// Put stores a snapshot as the period's current one, flagging any previous
// current snapshot superseded.
func (s *Store) Put(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.byPeriod[snap.Period]
	for i := range history {
		history[i].Superseded = true
	}
	snap.Superseded = false
	s.byPeriod[snap.Period] = append(history, snap)
}

// Current returns the period's active snapshot.
func (s *Store) Current(period core.Period) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.byPeriod[period]
	if len(history) == 0 {
		return Snapshot{}, false
	}
	return history[len(history)-1], true
}

// History returns all snapshots stored for the period, oldest first.
func (s *Store) History(period core.Period) []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, len(s.byPeriod[period]))
	copy(out, s.byPeriod[period])
	return out
}

// Restore loads persisted snapshots, oldest first per period.
func (s *Store) Restore(snaps []Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snaps {
		if err := snap.Period.Validate(); err != nil {
			return fmt.Errorf("snapshot %s: %w", snap.Period, err)
		}
		s.byPeriod[snap.Period] = append(s.byPeriod[snap.Period], snap)
	}
	return nil
}
