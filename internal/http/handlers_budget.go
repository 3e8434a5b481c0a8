package http

import (
	"net/http"
	"time"

	"budgeteer/internal/core"
	"budgeteer/internal/report"
)

type finalizeBudgetRequest struct {
	Period          string `json:"period,omitempty"`
	Income          string `json:"income"`
	SavingsOverride string `json:"savings_override,omitempty"`
}

// handleBudget finalizes a budget on POST and returns the period's current
// snapshot on GET.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleFinalizeBudget(w, r)
	case http.MethodGet:
		s.handleGetBudget(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleFinalizeBudget(w http.ResponseWriter, r *http.Request) {
	var req finalizeBudgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	now := time.Now()
	period := core.PeriodOf(now)
	if req.Period != "" {
		var err error
		period, err = core.ParsePeriod(req.Period)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	income, err := parseAmount(req.Income)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var override *core.Money
	if req.SavingsOverride != "" {
		m, err := parseAmount(req.SavingsOverride)
		if err != nil {
			writeError(w, r, err)
			return
		}
		override = &m
	}

	snap, err := s.svc.FinalizeBudget(r.Context(), period, income, override, now)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// A fresh snapshot changes over/under and summary answers.
	s.reportCache.InvalidatePrefix("reports:" + period.String() + ":")
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap, ok := s.svc.Snapshots().Current(period)
	if !ok {
		writeError(w, r, report.ErrNoSnapshot)
		return
	}

	if r.URL.Query().Get("history") == "true" {
		writeJSON(w, http.StatusOK, map[string]any{
			"current": snap,
			"history": s.svc.Snapshots().History(period),
		})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
