// Package apiapp serves the reconciliation pipeline over a JSON API.
package apiapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/middleware"
	"github.com/phillip-england/payrollsync/internal/payload"
	"github.com/phillip-england/payrollsync/internal/pipeline"
	"github.com/phillip-england/payrollsync/internal/security"
	"github.com/phillip-england/payrollsync/internal/store"
	"github.com/rs/zerolog"
)

const (
	sessionCookieName = "payrollsync_session"
	csrfHeaderName    = "X-CSRF-Token"
	defaultRunLimit   = 25
	maxRunLimit       = 200
)

type Config struct {
	Addr           string
	DBPath         string
	AdminUsername  string
	AdminPassword  string
	SessionTTL     time.Duration
	MaxUploadBytes int64

	Pipeline *pipeline.Pipeline
	Builder  *payload.Builder
	Mappings payload.Mappings
	// Submitter sends timesheets to the payroll API. Nil disables live
	// submission; dry runs still work.
	Submitter payload.TimesheetCreator
	Logger    *zerolog.Logger
}

type Server struct {
	store     *store.Store
	admin     *security.Admin
	sessions  *sessionStore
	pipeline  *pipeline.Pipeline
	builder   *payload.Builder
	mappings  payload.Mappings
	submitter payload.TimesheetCreator
	maxUpload int64
	logger    *zerolog.Logger

	// confirmMu is held for reading while stored confirmations are replayed
	// into the matcher and for writing while one is deleted.
	confirmMu sync.RWMutex
}

// New opens the run store and prepares the handlers.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.Builder == nil {
		cfg.Builder = payload.NewBuilder()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	admin, err := security.NewAdmin(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("admin credentials: %w", err)
	}
	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Server{
		store:     st,
		admin:     admin,
		sessions:  newSessionStore(cfg.SessionTTL),
		pipeline:  cfg.Pipeline,
		builder:   cfg.Builder,
		mappings:  cfg.Mappings,
		submitter: cfg.Submitter,
		maxUpload: cfg.MaxUploadBytes,
		logger:    cfg.Logger,
	}, nil
}

func (s *Server) Close() error { return s.store.Close() }

// Handler returns the routed API with its middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(s.logger))

	r.Get("/api/health", s.health)
	r.Post("/api/auth/login", s.login)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin, s.csrfProtect)

		r.Get("/api/auth/me", s.me)
		r.Get("/api/auth/csrf", s.csrfToken)
		r.Post("/api/auth/logout", s.logout)

		r.Get("/api/roster", s.roster)
		r.Post("/api/match", s.match)
		r.Get("/api/confirmations", s.listConfirmations)
		r.Post("/api/confirmations", s.createConfirmation)
		r.Delete("/api/confirmations/{name}", s.deleteConfirmation)

		r.Get("/api/runs", s.listRuns)
		r.With(middleware.MaxBodyBytes(s.maxUpload)).Post("/api/runs", s.createRun)
		r.Get("/api/runs/{id}", s.getRun)
		r.Delete("/api/runs/{id}", s.deleteRun)
		r.Get("/api/runs/{id}/export", s.exportRun)
		r.Get("/api/runs/{id}/unknown-regions", s.unknownRegions)
		r.Get("/api/runs/{id}/submissions", s.listSubmissions)
		r.Post("/api/runs/{id}/payloads", s.payloads)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	csp := strings.Join([]string{
		"default-src 'none'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		r,
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, cfg Config) error {
	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("api listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"roster_size":      len(s.pipeline.Matcher().Roster()),
		"submission_ready": s.submitter != nil,
	})
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	if err != nil || limit <= 0 {
		return defaultRunLimit
	}
	return min(limit, maxRunLimit)
}

func parseBoolQueryValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
