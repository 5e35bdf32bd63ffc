// Package server exposes the validation engine over HTTP for widget
// backends that cannot embed the library directly. Every validation
// verdict is a 200 response carrying the wire verdict; non-200 codes
// are reserved for transport problems such as malformed bodies or a
// throttled client.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	playground "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chatguard/chatguard/internal/config"
	"github.com/chatguard/chatguard/internal/eventlog"
	"github.com/chatguard/chatguard/internal/observability"
	"github.com/chatguard/chatguard/internal/validator"
)

// Options wires a Server. Validator and Events are required; Events
// must be the same log the validator records into. Metrics and
// Registry enable the /metrics endpoint when both are set.
type Options struct {
	Config    *config.Config
	Validator *validator.Validator
	Events    *eventlog.Log
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry
	Logger    *slog.Logger
	Version   string
}

// Server is the HTTP facade over the validation engine.
type Server struct {
	cfg      *config.Config
	engine   *validator.Validator
	events   *eventlog.Log
	metrics  *observability.Metrics
	registry *prometheus.Registry
	logger   *slog.Logger
	version  string

	fields   *playground.Validate
	throttle *throttle
	router   chi.Router
}

// New builds a server from opts.
func New(opts Options) (*Server, error) {
	if opts.Validator == nil {
		return nil, errors.New("validator is required")
	}
	if opts.Events == nil {
		return nil, errors.New("event log is required")
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		engine:   opts.Validator,
		events:   opts.Events,
		metrics:  opts.Metrics,
		registry: opts.Registry,
		logger:   logger,
		version:  opts.Version,
		fields:   playground.New(),
		throttle: newThrottle(cfg.Server.RequestsPerSecond, cfg.Server.Burst),
	}
	s.router = s.routes()
	return s, nil
}

// Router returns the assembled handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// SweepTransport drops throttle state for clients idle longer than ten
// minutes. Returns the number of clients removed.
func (s *Server) SweepTransport(now time.Time) int {
	if s.throttle == nil {
		return 0
	}
	return s.throttle.sweep(now, 10*time.Minute)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(auditContext)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	if s.throttle != nil {
		r.Use(s.throttle.handler)
	}
	r.Use(bodyLimit(s.cfg.Server.MaxBodyBytes))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.registry != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler(s.registry))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Post("/validate", s.handleValidate)
		r.Post("/sanitize/author", s.handleSanitizeAuthor)
		r.Post("/sanitize/filename", s.handleSanitizeFilename)
		r.Post("/url/check", s.handleURLCheck)

		r.Get("/events", s.handleEvents)
		r.Get("/events/summary", s.handleEventsSummary)
		r.Delete("/events", s.handleEventsClear)
	})

	return r
}
