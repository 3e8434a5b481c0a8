package sheets

import (
	"context"

	"budgeteer/internal/core"
)

// Ports for outbound export adapters.
type (
	// EntryExporter appends a committed ledger entry to an external sheet.
	EntryExporter interface {
		ExportEntry(ctx context.Context, e core.LedgerEntry) (rowRef string, err error)
	}
)
