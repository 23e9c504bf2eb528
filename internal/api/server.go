package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newsatlas/hubcrawler/internal/controller"
	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/telemetry/sinks"
)

const (
	defaultEventLimit  = 50
	maxEventLimit      = 500
	coverageTimeout    = 3 * time.Second
	requestBodyTimeout = 60 * time.Second
)

// Crawl is the slice of the controller the API needs: the operator control
// surface plus read-only status.
type Crawl interface {
	hub.Controls
	State() controller.State
	Progress() hub.Progress
	Mode() hub.Mode
	CompletedWithGaps() bool
}

// Config tunes the HTTP layer.
type Config struct {
	// APIKey guards mutating routes when non-empty.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	// Domain is reported in status and used for coverage lookups.
	Domain string `mapstructure:"domain" yaml:"domain"`
}

// Server wires HTTP handlers to a running crawl.
type Server struct {
	router chi.Router
	crawl  Crawl
	store  hub.Store
	events *sinks.MemorySink
	cfg    Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The events sink
// may be nil, in which case the events route answers 503.
func NewServer(crawl Crawl, store hub.Store, events *sinks.MemorySink, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		crawl:  crawl,
		store:  store,
		events: events,
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(requestBodyTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		r.Route("/crawl", func(r chi.Router) {
			r.Post("/pause", s.pauseCrawl)
			r.Post("/resume", s.resumeCrawl)
			r.Post("/abort", s.abortCrawl)
			r.Post("/mode", s.setMode)
			r.Get("/status", s.crawlStatus)
			r.Get("/events", s.recentEvents)
		})
		r.Get("/coverage", s.coverage)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.crawl == nil {
		writeError(w, http.StatusServiceUnavailable, "no crawl attached")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) pauseCrawl(w http.ResponseWriter, _ *http.Request) {
	if s.crawl == nil {
		writeError(w, http.StatusServiceUnavailable, "no crawl attached")
		return
	}
	s.crawl.Pause()
	writeJSON(w, http.StatusAccepted, map[string]string{"state": string(s.crawl.State())})
}

func (s *Server) resumeCrawl(w http.ResponseWriter, _ *http.Request) {
	if s.crawl == nil {
		writeError(w, http.StatusServiceUnavailable, "no crawl attached")
		return
	}
	s.crawl.Resume()
	writeJSON(w, http.StatusAccepted, map[string]string{"state": string(s.crawl.State())})
}

func (s *Server) abortCrawl(w http.ResponseWriter, _ *http.Request) {
	if s.crawl == nil {
		writeError(w, http.StatusServiceUnavailable, "no crawl attached")
		return
	}
	s.crawl.Abort()
	writeJSON(w, http.StatusAccepted, map[string]string{"state": string(s.crawl.State())})
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	if s.crawl == nil {
		writeError(w, http.StatusServiceUnavailable, "no crawl attached")
		return
	}
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	mode, ok := hub.ParseMode(req.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", req.Mode))
		return
	}
	s.crawl.SetMode(mode)
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}

type statusResponse struct {
	Domain            string       `json:"domain"`
	State             string       `json:"state"`
	Mode              string       `json:"mode"`
	Progress          hub.Progress `json:"progress"`
	CompletedWithGaps bool         `json:"completed_with_gaps"`
}

func (s *Server) crawlStatus(w http.ResponseWriter, _ *http.Request) {
	if s.crawl == nil {
		writeError(w, http.StatusServiceUnavailable, "no crawl attached")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Domain:            s.cfg.Domain,
		State:             string(s.crawl.State()),
		Mode:              string(s.crawl.Mode()),
		Progress:          s.crawl.Progress(),
		CompletedWithGaps: s.crawl.CompletedWithGaps(),
	})
}

// recentEvents handles GET /v1/crawl/events?limit=. Newest events come last.
func (s *Server) recentEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event retention disabled")
		return
	}
	limit, err := parseLimit(r, defaultEventLimit, maxEventLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events := s.events.Events()
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// coverage handles GET /v1/coverage. It reports the coverage keys confirmed
// so far for the configured domain.
func (s *Server) coverage(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), coverageTimeout)
	defer cancel()

	snapshot, err := s.store.GetCoverageSnapshot(ctx, s.cfg.Domain)
	if err != nil {
		s.logger.Error("coverage snapshot failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load coverage")
		return
	}
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"domain":   s.cfg.Domain,
		"count":    len(keys),
		"coverage": keys,
	})
}

func parseLimit(r *http.Request, def, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
