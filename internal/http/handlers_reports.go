package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// cachedReport serves a report from the LRU cache, rebuilding on miss. The
// build function returns the response value or an engine error.
func (s *Server) cachedReport(w http.ResponseWriter, r *http.Request, key string, build func() (any, error)) {
	if body, ok := s.reportCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	v, err := build()
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reportCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCategoryTotals(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	period, err := periodFromQuery(r, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.cachedReport(w, r, "reports:"+period.String()+":totals", func() (any, error) {
		return map[string]any{
			"period": period,
			"totals": s.svc.Reports().CategoryTotals(period),
		}, nil
	})
}

func (s *Server) handleOverUnderBudget(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	period, err := periodFromQuery(r, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.cachedReport(w, r, "reports:"+period.String()+":over-under", func() (any, error) {
		deltas, err := s.svc.Reports().OverUnderBudget(period)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"period": period,
			"deltas": deltas,
		}, nil
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	now := time.Now()
	period, err := periodFromQuery(r, now)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Summaries for the running month change with the clock, so they skip
	// the cache.
	if period.Contains(now) {
		summary, err := s.svc.Reports().PeriodSummary(period, now)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	s.cachedReport(w, r, "reports:"+period.String()+":summary", func() (any, error) {
		return s.svc.Reports().PeriodSummary(period, now)
	})
}

func (s *Server) handleSavingsBalance(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	now := time.Now()
	asOf, err := parseTimestamp(r.URL.Query().Get("as_of"), now)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.cachedReport(w, r, "balance:"+asOf.Format(time.RFC3339), func() (any, error) {
		return map[string]any{
			"as_of":   asOf,
			"balance": s.svc.Reports().SavingsBalanceAsOf(asOf),
		}, nil
	})
}
