package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgeteer/internal/budget"
	"budgeteer/internal/core"
	"budgeteer/internal/ledger"
	"budgeteer/internal/report"
)

// Repository is the durable store the service writes through to.
// A nil Repository means memory-only operation.
type Repository interface {
	AppendEntry(ctx context.Context, e core.LedgerEntry) error
	ListEntries(ctx context.Context) ([]core.LedgerEntry, error)
	SaveSnapshot(ctx context.Context, snap budget.Snapshot) error
	ListSnapshots(ctx context.Context) ([]budget.Snapshot, error)
}

// Publisher emits entry-recorded events for downstream consumers.
type Publisher interface {
	PublishEntryRecorded(ctx context.Context, id int64, kind string) error
}

// BudgetService orchestrates ledger writes across the in-memory ledger,
// SQLite and AMQP
type BudgetService struct {
	ledger    *ledger.Ledger
	snapshots *budget.Store
	planner   budget.Planner
	reports   *report.Engine
	repo      Repository
	publisher Publisher
}

func NewBudgetService(planner budget.Planner, repo Repository, publisher Publisher) *BudgetService {
	l := ledger.New()
	st := budget.NewStore()
	return &BudgetService{
		ledger:    l,
		snapshots: st,
		planner:   planner,
		reports:   report.NewEngine(l, st),
		repo:      repo,
		publisher: publisher,
	}
}

func (s *BudgetService) Ledger() *ledger.Ledger   { return s.ledger }
func (s *BudgetService) Snapshots() *budget.Store { return s.snapshots }
func (s *BudgetService) Reports() *report.Engine  { return s.reports }

// Restore replays durable state into the in-memory ledger and snapshot
// store. Call once at startup, before serving requests.
func (s *BudgetService) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	if err := s.ledger.Restore(entries); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}

	snaps, err := s.repo.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if err := s.snapshots.Restore(snaps); err != nil {
		return fmt.Errorf("restore snapshots: %w", err)
	}

	slog.InfoContext(ctx, "State restored",
		"entries", len(entries), "snapshots", len(snaps))
	return nil
}

// RecordExpense appends an expense and persists it, then publishes an
// entry-recorded event.
func (s *BudgetService) RecordExpense(ctx context.Context, category core.Category, amount core.Money, ts time.Time, note string) (int64, error) {
	id, err := s.ledger.AppendExpense(category, amount, ts, note)
	if err != nil {
		return 0, err
	}

	entry := core.LedgerEntry{
		ID:        id,
		Timestamp: ts.UTC(),
		Kind:      core.KindExpense,
		Category:  category,
		Amount:    amount,
		Note:      note,
	}
	return id, s.finishWrite(ctx, entry)
}

// RecordSavingsDeposit appends a deposit into the savings pot.
func (s *BudgetService) RecordSavingsDeposit(ctx context.Context, amount core.Money, ts time.Time, note string) (int64, error) {
	id, err := s.ledger.AppendSavingsDeposit(amount, ts, note)
	if err != nil {
		return 0, err
	}

	entry := core.LedgerEntry{
		ID:        id,
		Timestamp: ts.UTC(),
		Kind:      core.KindSavingsDeposit,
		Amount:    amount,
		Note:      note,
	}
	return id, s.finishWrite(ctx, entry)
}

// RecordSavingsWithdrawal appends a withdrawal. The balance check and the
// append happen atomically inside the ledger.
func (s *BudgetService) RecordSavingsWithdrawal(ctx context.Context, amount core.Money, ts time.Time, note string) (int64, error) {
	id, err := s.ledger.AppendSavingsWithdrawal(amount, ts, note)
	if err != nil {
		return 0, err
	}

	entry := core.LedgerEntry{
		ID:        id,
		Timestamp: ts.UTC(),
		Kind:      core.KindSavingsWithdrawal,
		Amount:    amount,
		Note:      note,
	}
	return id, s.finishWrite(ctx, entry)
}

// finishWrite persists the entry, then publishes the recorded event.
// Publish failures are logged but never fail the request: the entry is
// already committed locally and the export worker sweeps pending rows.
func (s *BudgetService) finishWrite(ctx context.Context, entry core.LedgerEntry) error {
	if s.repo != nil {
		if err := s.repo.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("persist entry: %w", err)
		}
	}

	if err := s.publishRecorded(ctx, entry.ID, string(entry.Kind)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry-recorded message",
			"id", entry.ID, "error", err)
		// Don't fail the request - entry is saved locally
	}
	return nil
}

func (s *BudgetService) publishRecorded(ctx context.Context, id int64, kind string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping entry-recorded message")
		return nil
	}
	return s.publisher.PublishEntryRecorded(ctx, id, kind)
}

// FinalizeBudget plans a snapshot for the period and stores it. Planning
// again for the same period supersedes the earlier snapshot.
func (s *BudgetService) FinalizeBudget(ctx context.Context, period core.Period, income core.Money, override *core.Money, now time.Time) (budget.Snapshot, error) {
	snap, err := s.planner.Plan(period, income, override, now)
	if err != nil {
		return budget.Snapshot{}, err
	}

	s.snapshots.Put(snap)

	if s.repo != nil {
		if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
			return budget.Snapshot{}, fmt.Errorf("persist snapshot: %w", err)
		}
	}

	slog.InfoContext(ctx, "Budget finalized",
		"period", period.String(),
		"income_cents", income.Cents,
		"savings_target_cents", snap.SavingsTarget.Cents)
	return snap, nil
}
