// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it builds the session store, the
// workspace registry and the handlers, connects them to routes, and runs
// the background janitor that forgets idle sessions.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New creates:
//	  sqlite.DB (session store) ┐
//	  auth.Sealer               ├→ service.Workspaces → handlers
//	  metrics.Collector         ┘
//	  auth.TokenService → auth.Session middleware (browser cookie)
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/dog-adoption/internal/auth"
	"github.com/sakif/dog-adoption/internal/config"
	"github.com/sakif/dog-adoption/internal/fetchapi"
	"github.com/sakif/dog-adoption/internal/handler"
	"github.com/sakif/dog-adoption/internal/metrics"
	"github.com/sakif/dog-adoption/internal/middleware"
	sqliteRepo "github.com/sakif/dog-adoption/internal/repository/sqlite"
	"github.com/sakif/dog-adoption/internal/service"
)

// janitorInterval is how often idle workspaces and sessions are swept.
const janitorInterval = time.Minute

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it after the
// HTTP server has shut down, so in-flight requests can still write.
type Server struct {
	router     *chi.Mux
	config     *config.Config
	logger     *slog.Logger
	db         *sqliteRepo.DB
	metrics    *metrics.Collector
	tokens     *auth.TokenService
	workspaces *service.Workspaces
}

// New creates a new Server from cfg.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it is not confused with
// the modernc sqlite driver.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	sealer, err := auth.NewSealer(cfg.SessionSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sealer: %w", err)
	}

	collector := metrics.New()
	apiCfg := fetchapi.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.APITimeout,
		RateLimit: cfg.APIRateLimit,
	}
	newClient := func() (*fetchapi.Client, error) {
		return fetchapi.New(apiCfg, collector, logger)
	}

	// The browser learns about an expired session from the 401 answer
	// (which carries redirect "/login"); here we only record it.
	nav := service.NavigatorFunc(func(ctx context.Context, sessionID string) {
		logger.Info("sending visitor to login", slog.String("session_id", sessionID))
	})

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: collector,
		tokens:  tokens,
		workspaces: service.NewWorkspaces(db, newClient, sealer, nav, service.WorkspaceConfig{
			PageSize:      cfg.PageSize,
			LocationDelay: cfg.LocationDelay,
		}, collector, logger),
	}

	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID, RealIP, Recoverer on everything
//  2. /health and /metrics answer without a session
//  3. everything else gets a session cookie, request logging and its
//     Workspace; the search, location and favorites routes also require
//     an upstream login
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	authHandler := handler.NewAuthHandler(s.logger)
	searchHandler := handler.NewSearchHandler(s.logger)
	locationHandler := handler.NewLocationHandler(s.logger)
	favoritesHandler := handler.NewFavoritesHandler(s.logger)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.Session(s.tokens, auth.SessionOptions{Secure: s.config.SecureCookies, Logger: s.logger}))
		r.Use(middleware.Logger(s.logger))

		r.Route("/api", func(r chi.Router) {
			r.Use(handler.LoadWorkspace(s.workspaces, s.logger))

			r.Post("/auth/login", authHandler.HandleLogin)
			r.Post("/auth/logout", authHandler.HandleLogout)
			r.Get("/auth/session", authHandler.HandleSession)
			r.Post("/filters/age", searchHandler.HandleAge)

			r.Group(func(r chi.Router) {
				r.Use(handler.RequireUser)

				r.Get("/breeds", searchHandler.HandleBreeds)

				r.Get("/search", searchHandler.HandleSnapshot)
				r.Post("/search/filters", searchHandler.HandleApplyFilters)
				r.Post("/search/sort", searchHandler.HandleSort)
				r.Post("/search/page", searchHandler.HandlePage)
				r.Post("/search/reset", searchHandler.HandleReset)

				r.Get("/locations", locationHandler.HandleSnapshot)
				r.Get("/locations/resolve", locationHandler.HandleResolve)
				r.Post("/locations/input", locationHandler.HandleInput)
				r.Post("/locations/open", locationHandler.HandleOpen)
				r.Post("/locations/selected", locationHandler.HandleSelect)
				r.Delete("/locations/selected", locationHandler.HandleDeselect)
				r.Post("/locations/manual", locationHandler.HandleManual)

				r.Get("/favorites", favoritesHandler.HandleList)
				r.Post("/favorites/{id}/toggle", favoritesHandler.HandleToggle)
				r.Delete("/favorites/{id}", favoritesHandler.HandleRemove)

				r.Post("/match", favoritesHandler.HandleGenerateMatch)
				r.Get("/match", favoritesHandler.HandleMatch)
			})
		})

		// The built frontend, when one is configured.
		if s.config.StaticDir != "" {
			r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
		}
	})
}

// sweep evicts idle workspaces and purges sessions not seen within the
// session TTL.
func (s *Server) sweep(ctx context.Context) {
	if n := s.workspaces.Evict(s.config.WorkspaceIdle); n > 0 {
		s.logger.Debug("evicted idle workspaces", slog.Int("count", n))
	}

	purged, err := s.db.PurgeIdle(ctx, time.Now().Add(-s.config.SessionTTL))
	if err != nil {
		s.logger.Error("failed to purge idle sessions", slog.String("error", err.Error()))
		return
	}
	if purged > 0 {
		s.logger.Info("purged idle sessions", slog.Int64("count", purged))
	}
}

func (s *Server) janitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Stop the janitor and close the database
func (s *Server) Start() error {
	defer s.db.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go s.janitor(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // a search is two upstream calls
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("api", s.config.APIURL),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
