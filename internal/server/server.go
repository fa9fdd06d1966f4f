// Package server is the composition root: it wires the database, services,
// handlers and middleware together and defines every route.
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

	"github.com/blogwithme/blogwithme/internal/auth"
	"github.com/blogwithme/blogwithme/internal/handler"
	"github.com/blogwithme/blogwithme/internal/middleware"
	sqliteRepo "github.com/blogwithme/blogwithme/internal/repository/sqlite"
	"github.com/blogwithme/blogwithme/internal/service"
	"github.com/blogwithme/blogwithme/internal/upload"
)

// Config holds everything the server needs to run. main.go fills it from the
// environment.
type Config struct {
	Port            int
	DBPath          string
	UploadDir       string
	SessionLifetime time.Duration
	CookieSecure    bool

	// JWTSecret enables the optional API bearer-token endpoints when set.
	JWTSecret string

	// GitHub OAuth login is enabled only when all three are set.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router, the database connection and the background session
// sweeper. The DB is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB

	authService *service.AuthService
}

// New assembles the full dependency chain: DB → repositories → services →
// handlers → routes. Each layer only sees the one below it.
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
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures global middleware and all route handlers.
//
// Every request passes through WithSession, which resolves the session cookie
// (or bearer token) into a session value on the context — anonymous when
// absent or expired. Routes that mutate state additionally sit behind
// RequireAuth.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	images, err := upload.NewStore(s.config.UploadDir, s.logger)
	if err != nil {
		return fmt.Errorf("creating upload store: %w", err)
	}

	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	}

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" && s.config.GitHubCallbackURL != "" {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	s.authService = service.NewAuthService(
		s.db.Users(), s.db.Sessions(),
		auth.NewPasswordService(), tokens,
		s.config.SessionLifetime, s.logger,
	)
	postService := service.NewPostService(s.db.Posts(), images, s.logger)
	commentService := service.NewCommentService(s.db.Comments(), s.db.Posts(), s.logger)
	likeService := service.NewLikeService(s.db.Likes(), s.db.Posts(), s.logger)

	authHandler := handler.NewAuthHandler(s.authService, github, s.config.CookieSecure, s.logger)
	postHandler := handler.NewPostHandler(postService, likeService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)

	s.router.Use(auth.WithSession(s.authService, s.logger))

	// Uploaded images are public once a post references them.
	fileServer := http.FileServer(http.Dir(images.Dir()))
	s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	s.router.Route("/api", func(r chi.Router) {
		// Public.
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Get("/auth/flash", authHandler.HandleFlash)
		if github != nil {
			r.Get("/auth/github", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}

		r.Get("/posts", postHandler.HandleList)
		r.Get("/posts/search", postHandler.HandleSearch)
		r.Get("/posts/{id}", postHandler.HandleGet)
		r.Get("/posts/{id}/comments", commentHandler.HandleList)

		// Session required.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth())

			r.Get("/auth/me", authHandler.HandleMe)
			r.Post("/auth/token", authHandler.HandleIssueToken)

			r.Get("/dashboard", postHandler.HandleDashboard)
			r.Post("/posts", postHandler.HandleCreate)
			r.Put("/posts/{id}", postHandler.HandleUpdate)
			r.Delete("/posts/{id}", postHandler.HandleDelete)
			r.Post("/posts/{id}/like", postHandler.HandleToggleLike)
			r.Post("/posts/{id}/comments", commentHandler.HandleAdd)
			r.Delete("/comments/{id}", commentHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close the
// database.
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

	// Expired sessions are rejected on access; the sweeper just keeps the
	// table from growing without bound.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go s.sweepSessions(sweepCtx)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("uploads", s.config.UploadDir),
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

func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.authService.SweepIdleSessions(ctx)
		}
	}
}
