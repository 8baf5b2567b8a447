// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
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

	"github.com/sakif/devforum/internal/auth"
	"github.com/sakif/devforum/internal/handler"
	"github.com/sakif/devforum/internal/middleware"
	"github.com/sakif/devforum/internal/realtime"
	sqliteRepo "github.com/sakif/devforum/internal/repository/sqlite"
	"github.com/sakif/devforum/internal/service"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy to:
// - Add new config options without changing function signatures
// - Pass config around as a single value
// - Load config from files/env vars in one place
type Config struct {
	Port      int
	DBPath    string // path to the SQLite database file
	JWTSecret string // HMAC key for signing session tokens
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and the realtime hub. Shutdown
// order matters: stop accepting requests first, then close the websocket
// sessions, then close the database.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	hub    *realtime.Hub
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. Create the database connection (sqlite.New)
//  2. Create the per-table stores over it
//  3. Create the service layer with the repository interfaces
//  4. Create the handlers with the services
//  5. Wire handlers to routes
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete sqlite stores)
// - Handlers get services (not repositories or the DB)
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		hub:    realtime.NewHub(logger),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /api/auth/register                → Create account
//	POST   /api/auth/login                   → Log in
//	POST   /api/auth/logout                  → Log out (clear cookie)
//	GET    /api/auth/me                      → Current user          [auth]
//	GET    /api/questions                    → List/search questions
//	POST   /api/questions                    → Post question         [auth]
//	GET    /api/questions/{id}               → Get question (counts view)
//	PUT    /api/questions/{id}               → Edit question         [auth]
//	DELETE /api/questions/{id}               → Delete question       [auth]
//	PUT    /api/questions/{id}/vote          → Toggle question vote  [auth]
//	GET    /api/questions/{id}/answers       → List answers
//	POST   /api/questions/{id}/answers       → Post answer           [auth]
//	PUT    /api/answers/{id}                 → Edit answer           [auth]
//	DELETE /api/answers/{id}                 → Delete answer         [auth]
//	PUT    /api/answers/{id}/vote            → Toggle answer vote    [auth]
//	PUT    /api/answers/{id}/accept          → Accept answer         [auth]
//	GET    /api/notifications                → List notifications    [auth]
//	GET    /api/notifications/unread-count   → Unread badge count    [auth]
//	PUT    /api/notifications/read-all       → Mark all read         [auth]
//	PUT    /api/notifications/{id}/read      → Mark one read         [auth]
//	GET    /ws                               → Realtime websocket (token-authenticated)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Auth Infrastructure ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	// === Repositories ===
	users := sqliteRepo.NewUserStore(s.db)
	questions := sqliteRepo.NewQuestionStore(s.db)
	answers := sqliteRepo.NewAnswerStore(s.db)
	votes := sqliteRepo.NewVoteStore(s.db)
	notifications := sqliteRepo.NewNotificationStore(s.db)

	// === Services ===
	notifier := service.NewNotifier(notifications, users, questions, s.hub, s.logger)
	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	questionService := service.NewQuestionService(questions, users, notifier, s.logger)
	answerService := service.NewAnswerService(answers, questions, users, notifier, s.logger)
	voteService := service.NewVoteService(questions, answers, users, votes, s.logger)
	notificationService := service.NewNotificationService(notifications, users, questions, s.hub, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, s.logger)
	questionHandler := handler.NewQuestionHandler(questionService, voteService, s.logger)
	answerHandler := handler.NewAnswerHandler(answerService, voteService, s.logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, s.logger)
	wsHandler := handler.NewWSHandler(s.hub, authService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", questionHandler.HandleList)
			r.Get("/{id}", questionHandler.HandleGet)
			r.Get("/{id}/answers", answerHandler.HandleListForQuestion)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", questionHandler.HandleCreate)
				r.Put("/{id}", questionHandler.HandleUpdate)
				r.Delete("/{id}", questionHandler.HandleDelete)
				r.Put("/{id}/vote", questionHandler.HandleVote)
				r.Post("/{id}/answers", answerHandler.HandleCreate)
			})
		})

		r.Route("/answers", func(r chi.Router) {
			r.Use(requireAuth)
			r.Put("/{id}", answerHandler.HandleUpdate)
			r.Delete("/{id}", answerHandler.HandleDelete)
			r.Put("/{id}/vote", answerHandler.HandleVote)
			r.Put("/{id}/accept", answerHandler.HandleAccept)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", notificationHandler.HandleList)
			r.Get("/unread-count", notificationHandler.HandleUnreadCount)
			r.Put("/read-all", notificationHandler.HandleMarkAllRead)
			r.Put("/{id}/read", notificationHandler.HandleMarkRead)
		})
	})

	// The websocket route authenticates inside the handler (the token rides
	// in the query string), so it sits outside the requireAuth group.
	s.router.Get("/ws", wsHandler.HandleConnect)

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close every websocket session (each write pump sends a close frame)
// 4. Close the database connection (flushes WAL, releases file lock)
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

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		s.hub.Shutdown()
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
