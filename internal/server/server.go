// Package server wires the dependency graph and defines all routes.
//
// This is the composition root: main.go hands us a Config, and everything
// else — database, repositories, services, handlers, middleware — is
// assembled here in one place.
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

	"github.com/sakif/progress-tracker/internal/auth"
	"github.com/sakif/progress-tracker/internal/handler"
	"github.com/sakif/progress-tracker/internal/middleware"
	sqliteRepo "github.com/sakif/progress-tracker/internal/repository/sqlite"
	"github.com/sakif/progress-tracker/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs access tokens. Required — the API cannot
	// authenticate anyone without it.
	JWTSecret string

	// GitHub OAuth App credentials. Optional: when ClientID is empty the
	// OAuth routes are not registered and email/password auth is the only
	// way in.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database connection. The DB is closed
// during graceful shutdown so the WAL is flushed before exit.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
//
//	sqlite.DB → services (user, session, auth) → handlers → routes
//
// Each layer receives only the interfaces it needs; handlers never touch
// the database and services never touch HTTP.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("server: JWT secret is required")
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	// One *sqlite.DB implements all three repository interfaces; the
	// services still only see the interface they depend on.
	userService := service.NewUserService(s.db, s.db, s.logger)
	sessionService := service.NewSessionService(s.db, s.logger)
	authService := service.NewAuthService(s.db, s.db, tokens, passwords, s.logger)

	userHandler := handler.NewUserHandler(userService, s.logger)
	sessionHandler := handler.NewSessionHandler(sessionService, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)

		// Logout only needs the identity if the token is still valid —
		// an expired token still gets its cookie cleared.
		r.With(auth.OptionalAuth(tokens)).Post("/logout", authHandler.HandleLogout)

		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public: username lookup (private profiles answer 404).
		r.Get("/users/{username}", userHandler.HandleLookupUsername)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Get("/users/", userHandler.HandleGetProfile)
			r.Patch("/users/", userHandler.HandleUpdateProfile)
			r.Post("/users/onboard", userHandler.HandleOnboard)

			r.Get("/sessions/", sessionHandler.HandleList)
			r.Get("/sessions/{id}", sessionHandler.HandleGet)
			r.Delete("/sessions/{id}", sessionHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
