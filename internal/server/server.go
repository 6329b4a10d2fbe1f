package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/me/ytdl-agent/internal/config"
	"github.com/me/ytdl-agent/internal/heartbeat"
	"github.com/me/ytdl-agent/internal/jobs"
	"github.com/me/ytdl-agent/internal/notify"
	"github.com/me/ytdl-agent/pkg/model"
)

// Jobs is the submission service behind the /jobs endpoints.
type Jobs interface {
	Submit(ctx context.Context, raw, name string) (string, error)
	Records(ctx context.Context) (map[string]model.Record, error)
	Status(ctx context.Context, key string) (model.StatusRecord, error)
	InFlight() int
}

// WindowGate is told about windows opening and closing.
type WindowGate interface {
	WindowCreated(ctx context.Context)
	WindowRemoved()
	Idle() bool
}

// Heartbeat reports keep-alive state for /health.
type Heartbeat interface {
	State() heartbeat.Snapshot
}

// Activity records that the agent is in use.
type Activity interface {
	Touch()
}

// Server is the agent's local HTTP API.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.Config
	startTime time.Time
	upgrader  websocket.Upgrader

	jobs      Jobs
	hub       *notify.Hub
	gate      WindowGate
	heartbeat Heartbeat
	activity  Activity

	// sseKeepAlive is the interval between SSE comment lines.
	sseKeepAlive time.Duration
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithActivity sets the activity tracker touched by every request and
// liveness ping.
func WithActivity(a Activity) Option {
	return func(s *Server) {
		s.activity = a
	}
}

// WithSSEKeepAlive overrides the SSE comment interval.
func WithSSEKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		s.sseKeepAlive = d
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.Config, j Jobs, hub *notify.Hub, g WindowGate, hb Heartbeat, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		logger:       logger.With("component", "server"),
		config:       cfg,
		startTime:    time.Now(),
		jobs:         j,
		hub:          hub,
		gate:         g,
		heartbeat:    hb,
		activity:     nopActivity{},
		sseKeepAlive: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(activityMiddleware(s.activity))
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Post("/", s.handleSubmitJob)
			r.Get("/{key}/status", s.handleJobStatus)
		})

		// Windows
		r.Get("/events", s.handleEvents)
		r.Post("/windows/{id}/focus", s.handleFocusWindow)

		// Liveness channel
		r.Get("/alive", s.handleAlive)
	})
}

type nopActivity struct{}

func (nopActivity) Touch() {}

var _ Jobs = (*jobs.Service)(nil)
