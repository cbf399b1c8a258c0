// Package debugserver exposes operational HTTP endpoints
// (/healthz, /stats/cache, /stats/promotions, /stats/sessions) over the teacher's
// go-chi/chi router idiom.
package debugserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/locatehq/locate/embed/cache"
	"github.com/locatehq/locate/session"
)

// CacheStats is the subset of cache.Stats the debug surface reports.
type CacheStats = cache.Stats

// PromotionStats summarizes the promotion store for /stats/promotions.
type PromotionStats struct {
	TotalEntries int64 `json:"total_entries"`
}

// SessionStats is one tracked page's reindex-decision counters, mirroring
// session.Stats so callers of this package never import session directly.
type SessionStats = session.Stats

// Deps supplies the live state debugserver reports on. Fields are
// function-valued so the server never holds a lock on the underlying
// cache/store itself.
type Deps struct {
	CacheStats     func() CacheStats
	PromotionStats func(ctx context.Context) (PromotionStats, error)
	SessionStats   func() []SessionStats
}

// Server is the debug HTTP surface.
type Server struct {
	addr   string
	deps   Deps
	logger *slog.Logger
	router *chi.Mux
	srv    *http.Server
}

// New builds a Server listening on addr.
func New(addr string, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	s := &Server{addr: addr, deps: deps, logger: logger, router: r}
	r.Get("/healthz", s.handleHealthz)
	r.Get("/stats/cache", s.handleCacheStats)
	r.Get("/stats/promotions", s.handlePromotionStats)
	r.Get("/stats/sessions", s.handleSessionStats)

	return s
}

// Start runs the HTTP server until ctx is cancelled or it errors.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.router}
	s.logger.Info("debugserver: listening", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.srv.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.CacheStats == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "cache not initialised"})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.CacheStats())
}

func (s *Server) handlePromotionStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.PromotionStats == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "promotion store not initialised"})
		return
	}
	stats, err := s.deps.PromotionStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.SessionStats == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session manager not initialised"})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.SessionStats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
