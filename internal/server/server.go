// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and routes,
// and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// cmd/server builds the concrete pieces (store, verifier, generator, reporter, metrics)
// and hands them over in Deps. New then assembles:
//
//	Deps.Store     → NameService       → NameHandler
//	Deps.Generator → SuggestionService → SuggestHandler
//	Deps.Verifier  → auth.Resolver     → auth.RequireAuth
//
// This is the "composition root" pattern: all dependencies are wired in one place.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/ory/graceful"

	"github.com/sakif/pet-namer/internal/auth"
	"github.com/sakif/pet-namer/internal/generator"
	"github.com/sakif/pet-namer/internal/handler"
	"github.com/sakif/pet-namer/internal/metrics"
	"github.com/sakif/pet-namer/internal/middleware"
	"github.com/sakif/pet-namer/internal/repository"
	"github.com/sakif/pet-namer/internal/service"
	"github.com/sakif/pet-namer/internal/telemetry"
)

// Config holds server configuration.
type Config struct {
	Port         int
	AuthTimeout  time.Duration // per-request budget for identity verification
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Store is the persistence gateway plus the lifecycle the server needs from it.
// Both sqlite.DB and postgres.DB satisfy it.
type Store interface {
	repository.NameRepository
	Ping(ctx context.Context) error
	Close() error
}

// Deps are the collaborators the server is built from.
type Deps struct {
	Store    Store         // required
	Verifier auth.Verifier // required

	// Generator is optional. Without it /api/suggestNames is not registered.
	Generator generator.Generator

	// Reporter defaults to a SentryReporter on the current hub.
	Reporter telemetry.Reporter

	// Metrics may be nil; /metrics is then not registered.
	Metrics *metrics.Metrics
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. When Start returns, the store is closed so pending
// writes are flushed and connections released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	deps   Deps
}

// New creates a new Server and registers every route.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server: a store is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("server: a token verifier is required")
	}
	if deps.Reporter == nil {
		deps.Reporter = telemetry.NewSentryReporter(logger, nil)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: withDefaults(cfg),
		logger: logger,
		deps:   deps,
	}
	s.setupRoutes()
	return s, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		// Suggestions may wait on the generator for up to its own timeout.
		cfg.WriteTimeout = 45 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	return cfg
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET  /api/getNames      → caller's saved names       (auth)
// POST /api/saveName      → save a name                (auth)
// POST /api/suggestNames  → AI name suggestions        (auth, optional)
// GET  /healthz           → store ping
// GET  /metrics           → Prometheus scrape
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts the real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Sentry: one hub per request; reports panics, then re-panics into Recoverer
// 5. Metrics and the request logger
//
// On the API routes the method gate runs before RequireAuth, so a wrong verb is
// answered 405 whether or not a token was sent.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(telemetry.Middleware())
	s.router.Use(s.deps.Metrics.Instrument)
	s.router.Use(middleware.Logger(s.logger))

	resolver := auth.NewResolver(s.deps.Verifier, s.config.AuthTimeout)
	requireAuth := auth.RequireAuth(resolver, s.deps.Reporter, s.deps.Metrics)

	nameHandler := handler.NewNameHandler(
		service.NewNameService(s.deps.Store, s.logger),
		s.deps.Reporter, s.deps.Metrics, s.logger,
	)

	s.router.Route("/api", func(r chi.Router) {
		r.With(middleware.AllowMethods(http.MethodGet), requireAuth).
			HandleFunc("/getNames", nameHandler.HandleList)
		r.With(middleware.AllowMethods(http.MethodPost), requireAuth).
			HandleFunc("/saveName", nameHandler.HandleSave)

		if s.deps.Generator != nil {
			suggestHandler := handler.NewSuggestHandler(
				service.NewSuggestionService(s.deps.Generator, s.logger),
				s.deps.Reporter, s.deps.Metrics, s.logger,
			)
			r.With(middleware.AllowMethods(http.MethodPost), requireAuth).
				HandleFunc("/suggestNames", suggestHandler.HandleSuggest)
		}
	})

	health := handler.NewHealthHandler(s.deps.Store, 2*time.Second, s.logger)
	s.router.Get("/healthz", health.HandleHealth)

	if s.deps.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests.
//
// GRACEFUL SHUTDOWN:
// graceful.Graceful runs ListenAndServe and, on a signal, calls Shutdown with a
// bounded context so in-flight requests can finish. http.ErrServerClosed is treated
// as a clean stop. The store is closed afterwards.
func (s *Server) Start() error {
	defer func() {
		if err := s.deps.Store.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info("server starting",
		slog.Int("port", s.config.Port),
		slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		slog.Bool("suggestions", s.deps.Generator != nil),
	)

	if err := graceful.Graceful(srv.ListenAndServe, srv.Shutdown); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
