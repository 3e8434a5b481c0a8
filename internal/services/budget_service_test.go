package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgeteer/internal/allocate"
	"budgeteer/internal/budget"
	"budgeteer/internal/core"
	"budgeteer/internal/policy"
)

type fakeRepo struct {
	entries   []core.LedgerEntry
	snapshots []budget.Snapshot
	appendErr error
}

func (f *fakeRepo) AppendEntry(_ context.Context, e core.LedgerEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeRepo) ListEntries(_ context.Context) ([]core.LedgerEntry, error) {
	return f.entries, nil
}

func (f *fakeRepo) SaveSnapshot(_ context.Context, snap budget.Snapshot) error {
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakeRepo) ListSnapshots(_ context.Context) ([]budget.Snapshot, error) {
	return f.snapshots, nil
}

type fakePublisher struct {
	published []int64
	err       error
}

func (f *fakePublisher) PublishEntryRecorded(_ context.Context, id int64, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func newTestPlanner(t *testing.T) budget.Planner {
	t.Helper()
	pol, err := policy.New(decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}
	return budget.NewPlanner(pol, allocate.EqualWeights())
}

func TestRecordExpensePersistsAndPublishes(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := NewBudgetService(newTestPlanner(t), repo, pub)

	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	id, err := svc.RecordExpense(context.Background(), core.CategoryFood, core.FromCents(1250), ts, "lunch")
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}

	if len(repo.entries) != 1 {
		t.Fatalf("persisted %d entries, want 1", len(repo.entries))
	}
	got := repo.entries[0]
	if got.ID != 1 || got.Kind != core.KindExpense || got.Category != core.CategoryFood || got.Amount.Cents != 1250 {
		t.Errorf("persisted entry = %+v", got)
	}

	if len(pub.published) != 1 || pub.published[0] != 1 {
		t.Errorf("published ids = %v, want [1]", pub.published)
	}
}

func TestRecordExpensePublishFailureIsNonFatal(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewBudgetService(newTestPlanner(t), repo, pub)

	_, err := svc.RecordExpense(context.Background(), core.CategoryHome, core.FromCents(500), time.Now(), "")
	if err != nil {
		t.Fatalf("RecordExpense with failing publisher: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Errorf("entry not persisted despite publish failure")
	}
}

func TestRecordExpensePersistFailureFailsRequest(t *testing.T) {
	repo := &fakeRepo{appendErr: errors.New("disk full")}
	svc := NewBudgetService(newTestPlanner(t), repo, nil)

	_, err := svc.RecordExpense(context.Background(), core.CategoryFun, core.FromCents(700), time.Now(), "")
	if err == nil {
		t.Fatal("expected error when persistence fails")
	}
}

func TestRecordExpenseNilCollaborators(t *testing.T) {
	svc := NewBudgetService(newTestPlanner(t), nil, nil)

	id, err := svc.RecordExpense(context.Background(), core.CategoryMisc, core.FromCents(300), time.Now(), "")
	if err != nil {
		t.Fatalf("RecordExpense memory-only: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
}

func TestRecordSavingsWithdrawalInsufficient(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewBudgetService(newTestPlanner(t), repo, nil)
	ctx := context.Background()

	if _, err := svc.RecordSavingsDeposit(ctx, core.FromCents(1000), time.Now(), ""); err != nil {
		t.Fatalf("RecordSavingsDeposit: %v", err)
	}

	_, err := svc.RecordSavingsWithdrawal(ctx, core.FromCents(1500), time.Now(), "")
	if !errors.Is(err, core.ErrInsufficientSavings) {
		t.Fatalf("err = %v, want ErrInsufficientSavings", err)
	}

	// Rejected withdrawal must not reach the durable store.
	if len(repo.entries) != 1 {
		t.Errorf("persisted %d entries, want 1", len(repo.entries))
	}
	if got := svc.Ledger().SavingsBalance().Cents; got != 1000 {
		t.Errorf("balance = %d, want 1000", got)
	}
}

func TestFinalizeBudgetPersistsSnapshot(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewBudgetService(newTestPlanner(t), repo, nil)

	period := core.Period{Year: 2026, Month: time.March}
	snap, err := svc.FinalizeBudget(context.Background(), period, core.FromCents(100000), nil, time.Now())
	if err != nil {
		t.Fatalf("FinalizeBudget: %v", err)
	}
	if snap.SavingsTarget.Cents != 20000 {
		t.Errorf("savings target = %d, want 20000", snap.SavingsTarget.Cents)
	}

	if len(repo.snapshots) != 1 {
		t.Fatalf("persisted %d snapshots, want 1", len(repo.snapshots))
	}
	if _, ok := svc.Snapshots().Current(period); !ok {
		t.Error("snapshot missing from in-memory store")
	}
}

func TestRestoreReplaysState(t *testing.T) {
	repo := &fakeRepo{}
	ctx := context.Background()

	seed := NewBudgetService(newTestPlanner(t), repo, nil)
	ts := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	if _, err := seed.RecordSavingsDeposit(ctx, core.FromCents(5000), ts, ""); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	if _, err := seed.RecordExpense(ctx, core.CategoryFood, core.FromCents(1200), ts, "groceries"); err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	period := core.Period{Year: 2026, Month: time.March}
	if _, err := seed.FinalizeBudget(ctx, period, core.FromCents(100000), nil, ts); err != nil {
		t.Fatalf("seed budget: %v", err)
	}

	fresh := NewBudgetService(newTestPlanner(t), repo, nil)
	if err := fresh.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if got := fresh.Ledger().Len(); got != 2 {
		t.Errorf("restored %d entries, want 2", got)
	}
	if got := fresh.Ledger().SavingsBalance().Cents; got != 5000 {
		t.Errorf("restored balance = %d, want 5000", got)
	}
	if _, ok := fresh.Snapshots().Current(period); !ok {
		t.Error("restored store missing snapshot")
	}

	// New appends continue above the replayed ids.
	id, err := fresh.RecordExpense(ctx, core.CategoryHome, core.FromCents(800), ts, "")
	if err != nil {
		t.Fatalf("post-restore expense: %v", err)
	}
	if id != 3 {
		t.Errorf("post-restore id = %d, want 3", id)
	}
}
