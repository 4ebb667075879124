package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goblog/apiserver/config"
	"github.com/goblog/apiserver/internal/db"
	"github.com/goblog/apiserver/internal/events"
	"github.com/goblog/apiserver/internal/handlers"
	"github.com/goblog/apiserver/internal/services"
	"github.com/goblog/apiserver/internal/storage"
	"github.com/goblog/apiserver/internal/store"
	"github.com/rs/zerolog/log"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  events.Publisher
}

// New constructs a Server: database, object storage, event publisher, and
// the full route tree. Every dependency is passed down explicitly; nothing
// reads ambient globals.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	imageStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if err := imageStore.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	publisher, err := events.New(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	postRepo := store.NewPostRepository(dbConn)

	avatarService := services.NewAvatarService(userRepo, imageStore)
	userService := services.NewUserService(userRepo, avatarService, publisher)
	postService := services.NewPostService(postRepo, userRepo, publisher)

	authHandler := handlers.NewAuthHandler(userService, cfg.JWTSecret, cfg.TokenTTL)
	postHandler := handlers.NewPostHandler(postService)
	accountHandler := handlers.NewAccountHandler(userService, avatarService)
	legacyHandler := handlers.NewLegacyAPIHandler(userService, postService)

	authMiddleware := handlers.RequireAuth(cfg.JWTSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, postHandler, authMiddleware)
	})
	router.Route("/account", func(r chi.Router) {
		handlers.AccountRouter(r, accountHandler, authMiddleware)
	})
	router.Get("/users/{username}/posts", postHandler.ListUserPosts)
	router.Get("/users/{username}/picture", accountHandler.GetPicture)
	router.Route("/api", func(r chi.Router) {
		handlers.LegacyAPIRouter(r, legacyHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
