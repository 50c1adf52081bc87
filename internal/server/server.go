// Package server provides the HTTP REST API for the briefing service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/luxprima/internal/llm"
	"github.com/jonathan/luxprima/internal/pipeline"
	"github.com/jonathan/luxprima/internal/server/middleware"
	"github.com/jonathan/luxprima/internal/server/ratelimit"
	"github.com/jonathan/luxprima/internal/types"
)

// ServiceName is reported by the health endpoints.
const ServiceName = "LuxPrima"

// Store is the persistence surface the API serves.
type Store interface {
	Ping(ctx context.Context) error

	ListSources(ctx context.Context) ([]types.Source, error)
	CreateSource(ctx context.Context, src types.Source) (*types.Source, error)
	DeleteSource(ctx context.Context, id int64) (bool, error)

	ListSettings(ctx context.Context) ([]types.Setting, error)
	UpsertSettings(ctx context.Context, updates []types.SettingUpdate) error

	ListSchedules(ctx context.Context) ([]types.Schedule, error)
	GetSchedule(ctx context.Context, id int64) (*types.Schedule, error)
	CreateSchedule(ctx context.Context, timeOfDay string, active bool) (*types.Schedule, error)
	UpdateSchedule(ctx context.Context, id int64, timeOfDay string, active bool) (*types.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) (bool, error)

	ListReports(ctx context.Context, offset, limit int) ([]types.Report, error)
	GetReport(ctx context.Context, id int64) (*types.Report, error)
	DeleteReport(ctx context.Context, id int64) (bool, error)
}

// Briefings starts runs and reports their status.
type Briefings interface {
	Start(ctx context.Context) error
	Status() string
	LastRun() *pipeline.RunSummary
	Subscribe() (<-chan string, func())
}

// Scheduler keeps live triggers in step with stored schedules.
type Scheduler interface {
	Add(scheduleID int64, timeOfDay string) error
	Remove(scheduleID int64)
	NextRun() (time.Time, bool)
}

// ModelLister discovers models served by an OpenAI-compatible endpoint.
type ModelLister func(ctx context.Context, baseURL string) ([]llm.Model, error)

// Server represents the HTTP server
type Server struct {
	httpServer   *http.Server
	store        Store
	briefings    Briefings
	scheduler    Scheduler
	rateLimiter  *ratelimit.Limiter
	jwtService   *JWTService
	listModels   ModelLister
	localBaseURL string
}

// Config holds server configuration
type Config struct {
	Port      int
	Store     Store
	Briefings Briefings
	Scheduler Scheduler

	// JWT guards mutating routes. Nil leaves them open.
	JWT *JWTService
	// RateLimit defaults to ratelimit.LoadConfig(true, 10).
	RateLimit *ratelimit.Config
	// ListModels defaults to llm.ListModels.
	ListModels   ModelLister
	LocalBaseURL string
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil || cfg.Briefings == nil || cfg.Scheduler == nil {
		return nil, errors.New("store, briefings and scheduler are required")
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig(true, 10)
	}
	if cfg.ListModels == nil {
		cfg.ListModels = llm.ListModels
	}
	if cfg.LocalBaseURL == "" {
		cfg.LocalBaseURL = llm.DefaultLocalBaseURL
	}

	s := &Server{
		store:        cfg.Store,
		briefings:    cfg.Briefings,
		scheduler:    cfg.Scheduler,
		rateLimiter:  ratelimit.NewLimiter(cfg.RateLimit),
		jwtService:   cfg.JWT,
		listModels:   cfg.ListModels,
		localBaseURL: cfg.LocalBaseURL,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // status stream is long-lived
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	protect := s.protect

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api", s.handleHealth)

	mux.HandleFunc("GET /api/sources", s.handleListSources)
	mux.Handle("POST /api/sources", protect(s.handleCreateSource))
	mux.Handle("DELETE /api/sources/{id}", protect(s.handleDeleteSource))

	mux.HandleFunc("GET /api/settings", s.handleListSettings)
	mux.Handle("POST /api/settings", protect(s.handleUpdateSettings))
	mux.HandleFunc("GET /api/settings/local-models", s.handleLocalModels)

	mux.HandleFunc("GET /api/schedules", s.handleListSchedules)
	mux.HandleFunc("GET /api/schedules/next-run", s.handleNextRun)
	mux.Handle("POST /api/schedules", protect(s.handleCreateSchedule))
	mux.Handle("PUT /api/schedules/{id}", protect(s.handleUpdateSchedule))
	mux.Handle("DELETE /api/schedules/{id}", protect(s.handleDeleteSchedule))

	mux.HandleFunc("GET /api/reports", s.handleListReports)
	mux.HandleFunc("GET /api/reports/status", s.handleReportStatus)
	mux.HandleFunc("GET /api/reports/status/stream", s.handleStatusStream)
	mux.Handle("POST /api/reports/generate", protect(s.handleGenerate))
	mux.HandleFunc("GET /api/reports/{id}", s.handleGetReport)
	mux.Handle("DELETE /api/reports/{id}", protect(s.handleDeleteReport))

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// protect wraps a mutating handler with bearer auth when a JWT service is configured.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	if s.jwtService == nil {
		return h
	}
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(h)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SERVER] Listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("[SERVER] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	log.Println("[SERVER] Stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[SERVER] %s %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[SERVER] %s %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok", "service": ServiceName})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[SERVER] Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failure maps err to a status code and writes it. Server errors are logged.
func (s *Server) failure(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[SERVER] Internal error: %v", err)
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &ErrValidation{Field: "id", Message: fmt.Sprintf("invalid id %q", raw)}
	}
	return id, nil
}

// parseQueryInt reads a non-negative integer query parameter. Values above
// ceiling are clamped when ceiling is positive.
func parseQueryInt(r *http.Request, key string, def, ceiling int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if ceiling > 0 && v > ceiling {
		return ceiling
	}
	return v
}

// extractClientID extracts the client identifier from the request.
// It uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
