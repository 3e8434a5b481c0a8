// Package memory is an in-process EntryExporter used by tests and local
// runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budgeteer/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.LedgerEntry
}

func New() *Store {
	return &Store{}
}

// ExportEntry stores the entry and returns a synthetic row reference.
func (s *Store) ExportEntry(_ context.Context, e core.LedgerEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Exported returns a copy of everything exported so far.
func (s *Store) Exported() []core.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.LedgerEntry, len(s.items))
	copy(out, s.items)
	return out
}
