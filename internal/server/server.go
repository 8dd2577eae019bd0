package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazz-dev/conncheck/internal/checker"
	"github.com/hazz-dev/conncheck/internal/metrics"
	"github.com/hazz-dev/conncheck/internal/suite"
	"github.com/hazz-dev/conncheck/internal/version"
)

// SuiteRunner defines the suite operations the server needs.
type SuiteRunner interface {
	Run(ctx context.Context, onResult func(checker.Result)) suite.Report
	Find(service string) (checker.Checker, bool)
}

// LatestSource reports the most recent scheduled run.
type LatestSource interface {
	Latest() (suite.Report, bool)
}

// Server holds the chi router and its dependencies.
type Server struct {
	suite  SuiteRunner
	latest LatestSource
	router chi.Router
	logger *slog.Logger
}

// New creates a new Server and registers all routes.
func New(runner SuiteRunner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		suite:  runner,
		router: chi.NewRouter(),
		logger: logger,
	}
	s.registerRoutes()
	return s
}

// SetLatestSource enables GET /api/status backed by src.
func (s *Server) SetLatestSource(src LatestSource) {
	s.latest = src
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/checks", s.handleRunSuite)
	r.Get("/api/checks/{service}", s.handleRunCheck)
	r.Get("/api/status", s.handleStatus)
	r.Handle("/metrics", metrics.Handler())
}

// --- Response helpers ---

type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// handleRunSuite runs every check. Any failure turns the response into a
// 503 so the endpoint can back a readiness probe.
func (s *Server) handleRunSuite(w http.ResponseWriter, r *http.Request) {
	rep := s.suite.Run(r.Context(), metrics.ObserveResult)

	status := http.StatusOK
	if !rep.OK() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

func (s *Server) handleRunCheck(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "service")

	c, ok := s.suite.Find(name)
	if !ok {
		writeError(w, http.StatusNotFound, "service not found")
		return
	}

	result := c.Check(r.Context())
	metrics.ObserveResult(result)

	status := http.StatusOK
	if result.Status == checker.StatusFail {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, result)
}

// handleStatus returns the latest scheduled report without running checks.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.latest == nil {
		writeError(w, http.StatusNotFound, "scheduled runs are disabled")
		return
	}
	rep, ok := s.latest.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no scheduled run has completed yet")
		return
	}

	status := http.StatusOK
	if !rep.OK() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
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
