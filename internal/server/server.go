package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calder-dev/stackstatus/internal/config"
	"github.com/calder-dev/stackstatus/internal/snapshot"
)

// Builder produces a fresh snapshot on demand.
type Builder interface {
	Build(ctx context.Context) *snapshot.Snapshot
}

// Server answers snapshot requests. It owns exactly one current-snapshot
// slot, swapped wholesale after each successful build; a partially built
// snapshot is never visible. Before the first build completes, requests
// get an explicit not-ready response rather than zero-valued data.
type Server struct {
	mu      sync.RWMutex
	builder Builder
	refresh config.RefreshConfig
	current atomic.Pointer[snapshot.Snapshot]
	router  chi.Router
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// New creates a new Server and registers all routes.
func New(builder Builder, refresh config.RefreshConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		builder: builder,
		refresh: refresh,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

// SetBuilder swaps the snapshot builder, e.g. after a config reload.
// The current snapshot stays published until the next build replaces it.
func (s *Server) SetBuilder(b Builder) {
	s.mu.Lock()
	s.builder = b
	s.mu.Unlock()
}

func (s *Server) getBuilder() Builder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builder
}

// Latest returns the most recently published snapshot, or nil before the
// first build completes.
func (s *Server) Latest() *snapshot.Snapshot {
	return s.current.Load()
}

// Start launches the background refresh loop when the interval policy is
// configured. It is non-blocking; under the on-demand policy it does
// nothing. In-flight builds are abandoned when ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	if s.refresh.Policy != config.PolicyInterval {
		return
	}
	s.wg.Add(1)
	go s.refreshLoop(ctx)
}

// Wait blocks until the refresh loop has exited.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	// Build immediately so the first request rarely sees not-ready.
	s.rebuild(ctx)

	ticker := time.NewTicker(s.refresh.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rebuild(ctx)
		}
	}
}

func (s *Server) rebuild(ctx context.Context) *snapshot.Snapshot {
	snap := s.getBuilder().Build(ctx)
	s.current.Store(snap)
	return snap
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/snapshot", s.handleSnapshot)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/", s.handleIndex)
}

// --- Response helpers ---

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Handlers ---

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.Latest()
	if s.refresh.Policy == config.PolicyOnDemand {
		// Concurrent requests may race two builds; either result is a
		// valid snapshot and the last one published wins.
		snap = s.rebuild(r.Context())
	}
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleHealth is a liveness check: it reports 200 whenever the process
// is serving, independent of whether a snapshot exists yet.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.Latest()
	if s.refresh.Policy == config.PolicyOnDemand {
		snap = s.rebuild(r.Context())
	}

	page, err := RenderHTML(snap)
	if err != nil {
		s.logger.Error("rendering display", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
