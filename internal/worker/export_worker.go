package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"budgeteer/internal/amqp"
	"budgeteer/internal/core"
	"budgeteer/internal/sheets"
)

// EntryStore is the slice of the durable store the worker needs: fetching
// entries and tracking their export state.
type EntryStore interface {
	GetEntry(ctx context.Context, id int64) (core.LedgerEntry, error)
	PendingExportEntries(ctx context.Context, limit int) ([]int64, error)
	MarkExported(ctx context.Context, id int64) error
	MarkExportError(ctx context.Context, id int64) error
}

// Consumer delivers entry-recorded messages from the broker.
type Consumer interface {
	ConsumeEntryRecorded(ctx context.Context, handler func(context.Context, *amqp.EntryRecordedMessage) error) error
}

// ExportWorker handles exporting ledger entries from SQLite to Google Sheets
type ExportWorker struct {
	storage   EntryStore
	exporter  sheets.EntryExporter
	batchSize int
}

func NewExportWorker(storage EntryStore, exporter sheets.EntryExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleEntryMessage processes a single entry-recorded message from AMQP
func (w *ExportWorker) HandleEntryMessage(ctx context.Context, msg *amqp.EntryRecordedMessage) error {
	slog.InfoContext(ctx, "Processing entry-recorded message",
		"id", msg.ID,
		"kind", msg.Kind)

	entry, err := w.storage.GetEntry(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}

	if err := w.exportEntry(ctx, entry); err != nil {
		return fmt.Errorf("export entry: %w", err)
	}

	return nil
}

func (w *ExportWorker) exportEntry(ctx context.Context, entry core.LedgerEntry) error {
	rowRef, err := w.exporter.ExportEntry(ctx, entry)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, entry.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"id", entry.ID, "error", markErr)
		}
		return err
	}

	if err := w.storage.MarkExported(ctx, entry.ID); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}

	slog.InfoContext(ctx, "Entry exported",
		"id", entry.ID,
		"row_ref", rowRef)
	return nil
}

// ProcessPendingEntries exports any entries that haven't been exported yet.
// This is a backup mechanism in case AMQP messages are lost
func (w *ExportWorker) ProcessPendingEntries(ctx context.Context) error {
	ids, err := w.storage.PendingExportEntries(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(ids))

	for _, id := range ids {
		entry, err := w.storage.GetEntry(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get entry", "id", id, "error", err)
			if err := w.storage.MarkExportError(ctx, id); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", err)
			}
			continue
		}

		if err := w.exportEntry(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to export entry", "id", id, "error", err)
			continue
		}
	}

	return nil
}

// StartupExportCheck sweeps pending entries once at worker startup. This is
// useful to recover from missed AMQP messages or worker downtime
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	ids, err := w.storage.PendingExportEntries(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending entries for startup check: %w", err)
	}

	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending entries on startup, processing...",
		"count", len(ids))

	successCount := 0
	errorCount := 0
	for _, id := range ids {
		entry, err := w.storage.GetEntry(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get entry for startup export",
				"id", id, "error", err)
			if err := w.storage.MarkExportError(ctx, id); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.exportEntry(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to export entry during startup",
				"id", id, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export check complete",
		"success", successCount, "errors", errorCount)
	return nil
}

// Run consumes entry-recorded messages and sweeps pending entries on a
// timer until the context is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer, sweepInterval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeEntryRecorded(ctx, w.HandleEntryMessage)
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPendingEntries(ctx); err != nil {
					slog.ErrorContext(ctx, "Failed to process pending entries", "error", err)
				}
			}
		}
	})

	return g.Wait()
}
