package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"budgeteer/internal/cache"
	"budgeteer/internal/services"
)

// Server exposes the budget engine as a JSON API.
type Server struct {
	http.Server
	svc         *services.BudgetService
	rateLimiter *rateLimiter

	// LRU cache for report responses, keyed by period
	reportCache *cache.Cache[[]byte]

	cancelJanitor context.CancelFunc
	shutdownOnce  sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.BudgetService) *Server {
	mux := http.NewServeMux()

	janitorCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:           svc,
		rateLimiter:   newRateLimiter(),
		reportCache:   cache.New[[]byte](200, 5*time.Minute),
		cancelJanitor: cancel,
	}
	s.reportCache.StartJanitor(janitorCtx, 10*time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/entries/expense", s.withSecurityHeaders(s.handleRecordExpense))
	mux.HandleFunc("/entries/savings-deposit", s.withSecurityHeaders(s.handleRecordSavingsDeposit))
	mux.HandleFunc("/entries/savings-withdrawal", s.withSecurityHeaders(s.handleRecordSavingsWithdrawal))
	mux.HandleFunc("/entries", s.withSecurityHeaders(s.handleListEntries))

	mux.HandleFunc("/budget", s.withSecurityHeaders(s.handleBudget))

	mux.HandleFunc("/reports/category-totals", s.withSecurityHeaders(s.handleCategoryTotals))
	mux.HandleFunc("/reports/over-under", s.withSecurityHeaders(s.handleOverUnderBudget))
	mux.HandleFunc("/reports/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("/reports/savings-balance", s.withSecurityHeaders(s.handleSavingsBalance))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cancelJanitor()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit writes only
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
