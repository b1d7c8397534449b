// Package server is the composition root for the HTTP API: it opens the
// database, builds services and handlers, and mounts the routes.
//
// DEPENDENCY FLOW:
//
//	config.Config ─┐
//	               ├─ sqlite.DB ─→ services ─→ handlers ─→ chi routes
//	slog.Logger  ──┘        └────→ search.Index (rebuilt in the background)
//
// Handlers only see services, services only see repository interfaces,
// and nothing below this package knows about HTTP routing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/auth"
	"github.com/sakif/starminder/internal/config"
	"github.com/sakif/starminder/internal/handler"
	"github.com/sakif/starminder/internal/middleware"
	sqliteRepo "github.com/sakif/starminder/internal/repository/sqlite"
	"github.com/sakif/starminder/internal/search"
	"github.com/sakif/starminder/internal/service"
)

// shutdownTimeout is how long in-flight requests get after a signal.
const shutdownTimeout = 30 * time.Second

// Server owns the database and search index; Start closes both on exit.
type Server struct {
	router chi.Router
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	index  *search.Index
	tokens *auth.TokenService // nil when auth is disabled
}

// New opens the database at cfg.DBPath (creating its directory), builds
// the search index and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	index, err := search.NewIndex()
	if err != nil {
		db.Close()
		return nil, err
	}
	if n, err := index.Rebuild(ctx, db); err != nil {
		// Search starts empty and the refresher tries again.
		logger.WarnContext(ctx, "initial search index build failed", slog.String("error", err.Error()))
	} else {
		logger.InfoContext(ctx, "search index built", slog.Int("stars", n))
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		index:  index,
	}
	if err := s.setupRoutes(ctx); err != nil {
		index.Close()
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// githubCredentials prefers the social app stored by setup-social-app and
// falls back to the environment.
func (s *Server) githubCredentials(ctx context.Context, setup *service.SetupService) (clientID, secret string) {
	app, err := setup.SocialApp(ctx, auth.ProviderGitHub)
	switch {
	case err == nil:
		return app.ClientID, app.Secret
	case errors.Is(err, apperror.ErrNotFound):
		s.logger.InfoContext(ctx, "no stored GitHub social app; using environment credentials")
	default:
		s.logger.WarnContext(ctx, "reading stored GitHub social app", slog.String("error", err.Error()))
	}

	if s.config.UsingPlaceholderCredentials() {
		s.logger.WarnContext(ctx, "GitHub OAuth credentials not found in environment; using placeholder values. GitHub login will NOT work, but the site will load.",
			slog.Any("missing", s.config.Fallbacks),
		)
	}
	return s.config.GitHubClientID, s.config.GitHubSecret
}

// setupRoutes mounts:
//
//	GET  /healthz                      liveness + searchable star count
//	GET  /auth/github/login            GitHub redirect
//	GET  /auth/github/callback         code exchange, sets session cookie
//	POST /auth/logout
//	GET  /api/tags                     public
//	POST /api/tags                     auth
//	GET  /api/me                       auth
//	GET  /api/reminders                auth
//	GET  /api/reminders/{id}           auth
//	GET  /api/temp-stars               auth
//	POST /api/temp-stars/promote       auth
//	GET  /api/stars/{id}/analysis      auth
//	PUT  /api/stars/{id}/cluster       auth
//	GET  /api/clusters/{clusterID}     auth
//	GET  /api/search?q=                auth
//
// Without JWT_SECRET only the public routes are mounted.
func (s *Server) setupRoutes(ctx context.Context) error {
	logger := s.logger
	cfg := s.config

	reminderService := service.NewReminderService(s.db, logger)
	stagingService := service.NewStagingService(s.db, logger)
	analysisService := service.NewAnalysisService(s.db, cfg.EmbeddingDimensions, logger)
	clusterService := service.NewClusterService(s.db, logger)
	tagService := service.NewTagService(s.db, s.db, logger)
	setupService := service.NewSetupService(s.db, logger)

	tagHandler := handler.NewTagHandler(tagService, logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)

	if cfg.AuthEnabled() {
		tokens, err := auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			return err
		}
		s.tokens = tokens
		// Before Logger so request logs carry the user id.
		s.router.Use(auth.OptionalAuth(tokens))
	}
	s.router.Use(middleware.Logger(logger))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/tags", tagHandler.HandleList)

	if s.tokens == nil {
		logger.WarnContext(ctx, "JWT_SECRET not set; authentication and user routes are disabled")
		return nil
	}

	clientID, secret := s.githubCredentials(ctx, setupService)
	provider := auth.NewGitHubProvider(clientID, secret, cfg.GitHubCallbackURL)

	authService := service.NewAuthService(s.db, s.tokens, logger)
	authHandler := handler.NewAuthHandler(provider, authService, s.tokens.TTL(), logger)
	reminderHandler := handler.NewReminderHandler(reminderService, stagingService, cfg.ReminderSize, logger)
	starHandler := handler.NewStarHandler(reminderService, analysisService, clusterService, logger)
	searchHandler := handler.NewSearchHandler(s.index, logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))

		r.Get("/me", authHandler.HandleMe)
		r.Post("/tags", tagHandler.HandleCreate)

		r.Get("/reminders", reminderHandler.HandleList)
		r.Get("/reminders/{id}", reminderHandler.HandleGet)

		r.Get("/temp-stars", reminderHandler.HandleListTempStars)
		r.Post("/temp-stars/promote", reminderHandler.HandlePromote)

		r.Get("/stars/{id}/analysis", starHandler.HandleGetAnalysis)
		r.Put("/stars/{id}/cluster", starHandler.HandleAssignCluster)
		r.Get("/clusters/{clusterID}", starHandler.HandleClusterMembers)

		r.Get("/search", searchHandler.HandleSearch)
	})
	return nil
}

// handleHealth reports liveness and how many stars are searchable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	docs, err := s.index.Count()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "counting search documents", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "searchableStars": docs})
}

// Start serves until ctx is cancelled, then drains in-flight requests and
// closes the index and database.
//
// The HTTP server and the search refresher run in one errgroup: if the
// listener fails, the group context cancels the refresher too.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()
	defer s.index.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.index.Refresh(gCtx, s.db, s.config.SearchRefresh, s.logger)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
