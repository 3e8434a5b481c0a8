package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"budgeteer/internal/core"
)

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	l := New()
	id1, err := l.AppendExpense(core.CategoryFood, core.FromCents(500), baseTime, "")
	if err != nil {
		t.Fatalf("append expense: %v", err)
	}
	id2, err := l.AppendSavingsDeposit(core.FromCents(1000), baseTime, "")
	if err != nil {
		t.Fatalf("append deposit: %v", err)
	}
	id3, err := l.AppendSavingsWithdrawal(core.FromCents(300), baseTime, "car repair")
	if err != nil {
		t.Fatalf("append withdrawal: %v", err)
	}
	if id1 != 1 || id2 != 2 || id3 != 3 {
		t.Fatalf("expected ids 1,2,3 got %d,%d,%d", id1, id2, id3)
	}
}

func TestAppendValidatesAmounts(t *testing.T) {
	l := New()
	if _, err := l.AppendExpense(core.CategoryFood, core.FromCents(0), baseTime, ""); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("zero expense expected invalid input, got %v", err)
	}
	if _, err := l.AppendSavingsDeposit(core.FromCents(-5), baseTime, ""); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("negative deposit expected invalid input, got %v", err)
	}
	if _, err := l.AppendExpense(0, core.FromCents(100), baseTime, ""); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("missing category expected invalid input, got %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("failed appends must not change the ledger")
	}
}

func TestWithdrawalBalanceCheck(t *testing.T) {
	l := New()
	if _, err := l.AppendSavingsDeposit(core.FromCents(10000), baseTime, ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// deposit $100 then withdraw $150 -> insufficient, ledger unchanged
	_, err := l.AppendSavingsWithdrawal(core.FromCents(15000), baseTime, "")
	if !errors.Is(err, core.ErrInsufficientSavings) {
		t.Fatalf("expected insufficient savings, got %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("failed withdrawal changed the ledger")
	}
	if got := l.SavingsBalance(); got.Cents != 10000 {
		t.Fatalf("balance expected 10000, got %d", got.Cents)
	}

	if _, err := l.AppendSavingsWithdrawal(core.FromCents(10000), baseTime, ""); err != nil {
		t.Fatalf("withdrawal up to balance must succeed: %v", err)
	}
	if got := l.SavingsBalance(); !got.IsZero() {
		t.Fatalf("balance expected zero, got %d", got.Cents)
	}
}

func TestEntriesInRange(t *testing.T) {
	l := New()
	for day := 1; day <= 5; day++ {
		ts := time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC)
		if _, err := l.AppendExpense(core.CategoryFood, core.FromCents(100), ts, ""); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	start := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	var ids []int64
	for e := range l.EntriesInRange(start, end) {
		ids = append(ids, e.ID)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Fatalf("expected ids [2 3], got %v", ids)
	}

	// Restartable: iterating again replays the same entries.
	seq := l.EntriesInRange(start, end)
	first := count(seq)
	second := count(seq)
	if first != 2 || second != 2 {
		t.Fatalf("sequence not restartable: %d then %d", first, second)
	}
}

func count(seq func(func(core.LedgerEntry) bool)) int {
	n := 0
	for range seq {
		n++
	}
	return n
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	l := New()
	if _, err := l.AppendSavingsDeposit(core.FromCents(1000), baseTime, ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// 100 goroutines each try to withdraw 100 cents from a 1000 cent pot;
	// exactly 10 can succeed.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.AppendSavingsWithdrawal(core.FromCents(100), baseTime, ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected exactly 10 successful withdrawals, got %d", succeeded)
	}
	if got := l.SavingsBalance(); got.IsNegative() {
		t.Fatalf("balance went negative: %d", got.Cents)
	}
}

func TestRestore(t *testing.T) {
	l := New()
	if _, err := l.AppendSavingsDeposit(core.FromCents(5000), baseTime, ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := l.AppendExpense(core.CategoryFun, core.FromCents(700), baseTime.Add(time.Hour), "cinema"); err != nil {
		t.Fatalf("expense: %v", err)
	}
	if _, err := l.AppendSavingsWithdrawal(core.FromCents(2000), baseTime.Add(2*time.Hour), ""); err != nil {
		t.Fatalf("withdrawal: %v", err)
	}

	restored := New()
	if err := restored.Restore(l.Snapshot()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	orig, copied := l.Snapshot(), restored.Snapshot()
	if len(orig) != len(copied) {
		t.Fatalf("entry count mismatch: %d vs %d", len(orig), len(copied))
	}
	for i := range orig {
		if orig[i] != copied[i] {
			t.Fatalf("entry %d differs after restore: %+v vs %+v", i, orig[i], copied[i])
		}
	}

	// New appends continue after the restored ids.
	id, err := restored.AppendExpense(core.CategoryFood, core.FromCents(100), baseTime, "")
	if err != nil {
		t.Fatalf("append after restore: %v", err)
	}
	if id != 4 {
		t.Fatalf("expected id 4 after restore, got %d", id)
	}
}

func TestRestoreRejectsCorruptData(t *testing.T) {
	bad := [][]core.LedgerEntry{
		{ // ids out of order
			{ID: 2, Kind: core.KindSavingsDeposit, Amount: core.FromCents(100), Timestamp: baseTime},
			{ID: 1, Kind: core.KindSavingsDeposit, Amount: core.FromCents(100), Timestamp: baseTime},
		},
		{ // withdrawal before any deposit
			{ID: 1, Kind: core.KindSavingsWithdrawal, Amount: core.FromCents(100), Timestamp: baseTime},
		},
	}
	for i, entries := range bad {
		if err := New().Restore(entries); err == nil {
			t.Fatalf("case %d expected restore error", i)
		}
	}
}
