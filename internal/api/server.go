// Package api provides the HTTP API server and handlers for the cover studio.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inkwellpress/inkwell/internal/http/response"
	"github.com/inkwellpress/inkwell/internal/sse"
	"github.com/inkwellpress/inkwell/internal/store"
)

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins []string
	// RequestsPerMinute limits each client IP. Zero disables limiting.
	RequestsPerMinute int
	Version           string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	services   *Services
	sseManager *sse.Manager
	sseHandler http.Handler
	router     *chi.Mux
	api        huma.API
	limiter    *RateLimiter
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	router := chi.NewRouter()
	s := &Server{
		store:      st,
		services:   services,
		sseManager: sseManager,
		router:     router,
		logger:     logger,
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, logger)
	}
	if opts.RequestsPerMinute > 0 {
		s.limiter = NewRateLimiter(opts.RequestsPerMinute, time.Minute, opts.RequestsPerMinute/2+1)
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Inkwell Cover Studio API", opts.Version)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the rate limiter.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Last-Event-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerProjectRoutes()
	s.registerCoverRoutes()

	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})

	// Raw handlers: binary downloads and the event stream.
	s.router.Get("/api/v1/projects/{id}/covers/{coverID}/download", s.handleDownload)
	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
}
