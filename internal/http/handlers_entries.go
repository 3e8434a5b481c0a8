package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"budgeteer/internal/core"
	"budgeteer/internal/report"
)

type recordEntryRequest struct {
	Category  string `json:"category,omitempty"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp,omitempty"`
	Note      string `json:"note,omitempty"`
}

type recordEntryResponse struct {
	ID int64 `json:"id"`
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req recordEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category, err := core.ParseCategory(req.Category)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: unknown category %q", core.ErrInvalidInput, req.Category))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ts, err := parseTimestamp(req.Timestamp, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.svc.RecordExpense(r.Context(), category, amount, ts, sanitizeNote(req.Note))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(ts)
	writeJSON(w, http.StatusCreated, recordEntryResponse{ID: id})
}

func (s *Server) handleRecordSavingsDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleSavingsEntry(w, r, s.svc.RecordSavingsDeposit)
}

func (s *Server) handleRecordSavingsWithdrawal(w http.ResponseWriter, r *http.Request) {
	s.handleSavingsEntry(w, r, s.svc.RecordSavingsWithdrawal)
}

func (s *Server) handleSavingsEntry(w http.ResponseWriter, r *http.Request, record func(context.Context, core.Money, time.Time, string) (int64, error)) {
	if !requirePost(w, r) {
		return
	}

	var req recordEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Category != "" {
		writeError(w, r, fmt.Errorf("%w: savings entries carry no category", core.ErrInvalidInput))
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ts, err := parseTimestamp(req.Timestamp, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := record(r.Context(), amount, ts, sanitizeNote(req.Note))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(ts)
	writeJSON(w, http.StatusCreated, recordEntryResponse{ID: id})
}

// invalidateReports drops cached reports touched by a write: everything for
// the entry's period, plus every cached running balance.
func (s *Server) invalidateReports(ts time.Time) {
	s.reportCache.InvalidatePrefix("reports:" + core.PeriodOf(ts).String() + ":")
	s.reportCache.InvalidatePrefix("balance:")
}

// handleListEntries streams the filtered ledger history, oldest first.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries := make([]core.LedgerEntry, 0)
	for entry := range s.svc.Reports().History(f) {
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func filterFromQuery(r *http.Request) (report.Filter, error) {
	var f report.Filter
	q := r.URL.Query()

	if raw := q.Get("category"); raw != "" {
		c, err := core.ParseCategory(raw)
		if err != nil {
			return f, fmt.Errorf("%w: unknown category %q", core.ErrInvalidInput, raw)
		}
		f.Category = c
	}
	if raw := q.Get("kind"); raw != "" {
		kind := core.EntryKind(raw)
		if !kind.Valid() {
			return f, fmt.Errorf("%w: unknown entry kind %q", core.ErrInvalidInput, raw)
		}
		f.Kind = kind
	}
	if raw := q.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, fmt.Errorf("%w: bad from timestamp %q", core.ErrInvalidInput, raw)
		}
		f.From = ts.UTC()
	}
	if raw := q.Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, fmt.Errorf("%w: bad to timestamp %q", core.ErrInvalidInput, raw)
		}
		f.To = ts.UTC()
	}
	return f, nil
}
