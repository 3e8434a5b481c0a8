// Package storage is the persistence collaborator: it durably stores ledger
// entries and budget snapshots in SQLite and replays them on startup. The
// engine itself never blocks on I/O; callers invoke these operations around
// the in-memory core.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budgeteer/internal/budget"
	"budgeteer/internal/core"

	_ "modernc.org/sqlite"
)

// Export bookkeeping states for the sheet export worker.
const (
	exportPending  = "pending"
	exportDone     = "exported"
	exportErrState = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AppendEntry persists a committed ledger entry under its assigned id.
func (r *SQLiteRepository) AppendEntry(ctx context.Context, e core.LedgerEntry) error {
	var category any
	if e.Kind == core.KindExpense {
		category = e.Category.String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, ts, kind, category, amount_cents, note)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Kind), category, e.Amount.Cents, e.Note)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	slog.InfoContext(ctx, "Ledger entry saved",
		"entry_id", e.ID,
		"entry_kind", string(e.Kind),
		"amount_cents", e.Amount.Cents)
	return nil
}

// GetEntry loads one entry by id.
func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, ts, kind, category, amount_cents, note
		 FROM ledger_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get ledger entry %d: %w", id, err)
	}
	return entry, nil
}

// ListEntries returns all entries in id order, for ledger replay on startup.
func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ts, kind, category, amount_cents, note
		 FROM ledger_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.LedgerEntry, error) {
	var (
		e        core.LedgerEntry
		ts       string
		kind     string
		category sql.NullString
	)
	if err := row.Scan(&e.ID, &ts, &kind, &category, &e.Amount.Cents, &e.Note); err != nil {
		return core.LedgerEntry{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	e.Timestamp = parsed.UTC()
	e.Kind = core.EntryKind(kind)
	if category.Valid {
		c, err := core.ParseCategory(category.String)
		if err != nil {
			return core.LedgerEntry{}, err
		}
		e.Category = c
	}
	return e, nil
}

// SaveSnapshot stores a finalized budget as the period's current snapshot.
// Supersede and insert run in one transaction so readers never see two
// current snapshots for a period.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snap budget.Snapshot) error {
	allocations, err := json.Marshal(snap.Allocations)
	if err != nil {
		return fmt.Errorf("marshal allocations: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE budget_snapshots SET superseded = 1 WHERE period = ?`,
		snap.Period.String()); err != nil {
		return fmt.Errorf("supersede snapshots: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO budget_snapshots
		 (period, income_cents, savings_target_cents, explanation, allocations, superseded, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		snap.Period.String(), snap.Income.Cents, snap.SavingsTarget.Cents,
		snap.Explanation, string(allocations),
		snap.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Budget snapshot saved",
		"period", snap.Period.String(),
		"income_cents", snap.Income.Cents,
		"savings_target_cents", snap.SavingsTarget.Cents)
	return nil
}

// ListSnapshots returns all snapshots, oldest first, for store replay.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context) ([]budget.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT period, income_cents, savings_target_cents, explanation, allocations, superseded, created_at
		 FROM budget_snapshots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []budget.Snapshot
	for rows.Next() {
		var (
			snap        budget.Snapshot
			period      string
			allocations string
			createdAt   string
		)
		if err := rows.Scan(&period, &snap.Income.Cents, &snap.SavingsTarget.Cents,
			&snap.Explanation, &allocations, &snap.Superseded, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if snap.Period, err = core.ParsePeriod(period); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(allocations), &snap.Allocations); err != nil {
			return nil, fmt.Errorf("unmarshal allocations: %w", err)
		}
		created, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		snap.CreatedAt = created.UTC()
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// PendingExportEntries returns ids of entries not yet exported to the sheet.
// This feeds the worker's backup scan when AMQP messages are lost.
func (r *SQLiteRepository) PendingExportEntries(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM ledger_entries WHERE export_status = ? ORDER BY id LIMIT ?`,
		exportPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending export entries: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkExported flags an entry as successfully exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE ledger_entries SET export_status = ? WHERE id = ?`, exportDone, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	slog.InfoContext(ctx, "Ledger entry marked exported", "entry_id", id)
	return nil
}

// MarkExportError flags an entry whose export failed, so the backup scan
// does not retry it forever.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE ledger_entries SET export_status = ? WHERE id = ?`, exportErrState, id); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Ledger entry marked with export error", "entry_id", id)
	return nil
}
