// Package ledger is the append-only store of financial events and the source
// of truth for every derived view.
package ledger

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"budgeteer/internal/core"
)

// Ledger assigns monotonically increasing ids in append order. A single
// mutex covers the balance check and the append for savings withdrawals, so
// two concurrent writers can never both pass the check against the same
// balance. Readers take a snapshot of the committed prefix and never observe
// a partially appended entry.
type Ledger struct {
	mu      sync.RWMutex
	entries []core.LedgerEntry
	nextID  int64
}

func New() *Ledger {
	return &Ledger{nextID: 1}
}

// AppendExpense records a spending event. Expenses are not constrained by
// any budget or balance: overspending is a state the tool represents, not
// one it prevents.
func (l *Ledger) AppendExpense(category core.Category, amount core.Money, ts time.Time, note string) (int64, error) {
	entry := core.LedgerEntry{
		Timestamp: ts.UTC(),
		Kind:      core.KindExpense,
		Category:  category,
		Amount:    amount,
		Note:      note,
	}
	if err := entry.Validate(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(entry), nil
}

// AppendSavingsDeposit records money put into savings.
func (l *Ledger) AppendSavingsDeposit(amount core.Money, ts time.Time, note string) (int64, error) {
	entry := core.LedgerEntry{
		Timestamp: ts.UTC(),
		Kind:      core.KindSavingsDeposit,
		Amount:    amount,
		Note:      note,
	}
	if err := entry.Validate(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(entry), nil
}

// AppendSavingsWithdrawal records money taken out of savings. The current
// balance is recomputed and checked under the same lock as the append; on
// failure the ledger is unchanged.
func (l *Ledger) AppendSavingsWithdrawal(amount core.Money, ts time.Time, note string) (int64, error) {
	entry := core.LedgerEntry{
		Timestamp: ts.UTC(),
		Kind:      core.KindSavingsWithdrawal,
		Amount:    amount,
		Note:      note,
	}
	if err := entry.Validate(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balanceLocked()
	if balance.LessThan(amount) {
		return 0, fmt.Errorf("%w: withdrawal %s exceeds balance %s",
			core.ErrInsufficientSavings, amount, balance)
	}
	return l.commit(entry), nil
}

func (l *Ledger) commit(entry core.LedgerEntry) int64 {
	entry.ID = l.nextID
	l.nextID++
	l.entries = append(l.entries, entry)
	return entry.ID
}

func (l *Ledger) balanceLocked() core.Money {
	balance := core.Money{}
	for _, e := range l.entries {
		switch e.Kind {
		case core.KindSavingsDeposit:
			balance = balance.Add(e.Amount)
		case core.KindSavingsWithdrawal:
			balance = balance.Sub(e.Amount)
		}
	}
	return balance
}

// SavingsBalance returns deposits minus withdrawals over the committed ledger.
func (l *Ledger) SavingsBalance() core.Money {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked()
}

// Len returns the number of committed entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of the committed entries in id order.
func (l *Ledger) Snapshot() []core.LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// EntriesInRange yields entries with start <= Timestamp < end, in id order.
// Each call captures the ledger state at call time; iterating the returned
// sequence again replays the same entries.
func (l *Ledger) EntriesInRange(start, end time.Time) iter.Seq[core.LedgerEntry] {
	snapshot := l.Snapshot()
	return func(yield func(core.LedgerEntry) bool) {
		for _, e := range snapshot {
			if e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// All yields every committed entry in id order.
func (l *Ledger) All() iter.Seq[core.LedgerEntry] {
	snapshot := l.Snapshot()
	return func(yield func(core.LedgerEntry) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}

// Restore replays persisted entries into an empty ledger. Ids must be
// strictly increasing and the running savings balance must never go negative;
// persisted ledgers were written through the public append path, so a
// violation means the stored data was tampered with or corrupted.
func (l *Ledger) Restore(entries []core.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) > 0 {
		return fmt.Errorf("%w: restore into non-empty ledger", core.ErrInvalidInput)
	}

	var lastID int64
	balance := core.Money{}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", e.ID, err)
		}
		if e.ID <= lastID {
			return fmt.Errorf("%w: entry ids not strictly increasing at %d", core.ErrInvalidInput, e.ID)
		}
		switch e.Kind {
		case core.KindSavingsDeposit:
			balance = balance.Add(e.Amount)
		case core.KindSavingsWithdrawal:
			balance = balance.Sub(e.Amount)
			if balance.IsNegative() {
				return fmt.Errorf("%w: negative balance after entry %d", core.ErrInvalidInput, e.ID)
			}
		}
		lastID = e.ID
	}

	l.entries = append(l.entries, entries...)
	l.nextID = lastID + 1
	return nil
}
