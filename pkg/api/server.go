// Package api exposes the chapter admin engine over HTTP.
//
// Every /api/v1 route runs behind bearer authentication and, when configured,
// per-caller rate limiting. Handlers gate each request with the engine's
// Check*/Require* methods before calling the lifecycle or read path, and map
// engine errors onto status codes in errors.go.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/httputil"
	"github.com/platinummonkey/chapteradmin/pkg/identity"
	"github.com/platinummonkey/chapteradmin/pkg/middleware"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

// DefaultMaxBodyBytes bounds JSON request bodies
const DefaultMaxBodyBytes = 1 << 20

// Options configures the server's collaborators. Authenticator is required
// for any /api/v1 request to succeed; the rest are optional.
type Options struct {
	Authenticator identity.Authenticator
	RateLimit     *middleware.RateLimitMiddleware
	Health        *observability.HealthChecker
	Logger        *observability.Logger
	Metrics       *observability.Metrics
	MaxBodyBytes  int64
}

// Server represents our API server
type Server struct {
	engine  *chapters.Engine
	router  *mux.Router
	logger  *observability.Logger
	metrics *observability.Metrics
	health  *observability.HealthChecker
}

// NewServer creates a new API server
func NewServer(engine *chapters.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Authenticator == nil {
		opts.Authenticator = identity.StaticTokens{}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Health == nil {
		opts.Health = observability.NewHealthChecker("", 0)
	}

	s := &Server{
		engine:  engine,
		router:  mux.NewRouter(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
		health:  opts.Health,
	}
	s.setupRoutes(opts)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts Options) {
	s.router.Use(
		httputil.RequestIDMiddleware(s.logger),
		httputil.RecoveryMiddleware,
		httputil.LoggingMiddleware(s.metrics),
	)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "route not found")
	})

	// Probes and metrics stay outside authentication
	s.router.HandleFunc("/healthz", s.health.Liveness).Methods("GET")
	s.router.HandleFunc("/readyz", s.health.Readiness).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	if opts.RateLimit != nil {
		v1.Use(opts.RateLimit.FailedAuthHandler)
	}
	v1.Use(middleware.NewAuthMiddleware(opts.Authenticator, false).Handler)
	if opts.RateLimit != nil {
		v1.Use(opts.RateLimit.Handler)
	}
	v1.Use(httputil.ContentTypeMiddleware, httputil.MaxBytesMiddleware(opts.MaxBodyBytes))

	// Chapter admin routes
	v1.HandleFunc("/admins", s.listAdmins).Methods("GET")
	v1.HandleFunc("/admins", s.assignAdmin).Methods("POST")
	v1.HandleFunc("/admins", s.removeAdmin).Methods("DELETE")
	v1.HandleFunc("/admins/{id}", s.removeAdmin).Methods("DELETE")

	// School routes
	v1.HandleFunc("/schools", s.createSchool).Methods("POST")
	v1.HandleFunc("/schools/{id}/stats", s.updateSchoolStats).Methods("PATCH")

	v1.HandleFunc("/permissions", s.getPermissions).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router for additional registrations
func (s *Server) Router() *mux.Router {
	return s.router
}
