package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/jabez4jc/openalgo-control/internal/errors"
	"github.com/jabez4jc/openalgo-control/internal/observability"
	"github.com/jabez4jc/openalgo-control/internal/server/handlers"
	"github.com/jabez4jc/openalgo-control/internal/server/middleware"
)

// Server is the HTTP control plane. Routes are fixed at construction; the
// fleet API is only mounted when an API handler set is supplied.
type Server struct {
	host    string
	port    int
	router  chi.Router
	httpSrv *http.Server

	api          *handlers.API
	version      handlers.VersionInfo
	ratePerMin   int
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
}

// Option adjusts server construction.
type Option func(*Server)

// WithAPI mounts the fleet operations API.
func WithAPI(api *handlers.API) Option {
	return func(s *Server) { s.api = api }
}

// WithVersionInfo sets the build identity served at /version.
func WithVersionInfo(info handlers.VersionInfo) Option {
	return func(s *Server) { s.version = info }
}

// WithJobRateLimit throttles the job-creating endpoints to n requests per
// minute. Zero disables the limiter.
func WithJobRateLimit(n int) Option {
	return func(s *Server) { s.ratePerMin = n }
}

// WithTimeouts overrides the HTTP server's read, write and idle timeouts.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
		s.idleTimeout = idle
	}
}

// New builds a server listening on host:port.
func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		host:         host,
		port:         port,
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
		idleTimeout:  120 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestLogger)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apperrors.Write(w, http.StatusNotFound, apperrors.CodeNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apperrors.Write(w, http.StatusMethodNotAllowed, apperrors.CodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.NewVersionHandler(s.version))

	if s.api != nil {
		s.mountAPI(r)
	}

	return r
}

func (s *Server) mountAPI(r chi.Router) {
	api := s.api

	r.Route("/api", func(r chi.Router) {
		r.Get("/instances", api.Instances)
		r.Get("/status", api.StatusAll)
		r.Get("/health", api.Health)

		r.Post("/start-instance", api.Start)
		r.Post("/stop-instance", api.Stop)
		r.Post("/restart-instance", api.Restart)

		// Job creation carries a rate limit: each accepted request can fork
		// a long-running maintenance process.
		r.Group(func(r chi.Router) {
			if s.ratePerMin > 0 {
				r.Use(middleware.Throttle(s.ratePerMin))
			}
			r.Post("/health-check", api.CreateHealthCheck)
			r.Post("/update", api.CreateUpdate)
			r.Post("/restart-all", api.RestartAll)
		})

		r.Get("/jobs", api.ListJobs)
		r.Get("/jobs/{id}", api.GetJob)
	})
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Port returns the configured listen port.
func (s *Server) Port() int { return s.port }

// Addr returns the listen address.
func (s *Server) Addr() string { return fmt.Sprintf("%s:%d", s.host, s.port) }

// Start runs the HTTP server until it fails or Shutdown is called.
// http.ErrServerClosed is swallowed; a clean shutdown is not an error.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}
	observability.ServerLogger.Info("http server listening",
		zap.String("addr", s.Addr()))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
