package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/recipebox/apiserver/config"
	"github.com/recipebox/apiserver/internal/db"
	"github.com/recipebox/apiserver/internal/handlers"
	"github.com/recipebox/apiserver/internal/mq"
	"github.com/recipebox/apiserver/internal/services"
	"github.com/recipebox/apiserver/internal/storage"
	"github.com/recipebox/apiserver/internal/store"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
	logger     *slog.Logger
}

// New constructs a Server with its full dependency graph: Postgres
// repositories, services, object storage for images and the optional
// event broker.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	images, err := storage.New(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := images.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	broker, err := mq.NewFromConfig(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init mq: %w", err)
	}

	userRepo := store.NewUserRepository(dbConn)
	tokenRepo := store.NewTokenRepository(dbConn)
	tagRepo := store.NewTagRepository(dbConn)
	ingredientRepo := store.NewIngredientRepository(dbConn)
	recipeRepo := store.NewRecipeRepository(dbConn)

	var publisher services.EventPublisher
	if broker != nil {
		publisher = broker
	}
	events := services.NewEvents(publisher, cfg.MQ.EventsChannel, logger)

	userService := services.NewUserService(userRepo)
	authService := services.NewAuthService(userService, tokenRepo)
	tagService := services.NewTagService(tagRepo)
	ingredientService := services.NewIngredientService(ingredientRepo)
	recipeService := services.NewRecipeService(recipeRepo, tagRepo, ingredientRepo, images, events)

	userHandler := handlers.NewUserHandler(userService, authService)
	authMiddleware := userHandler.RequireAuth

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Get("/healthz", handlers.Healthz)
	router.Route("/user", func(r chi.Router) {
		handlers.UserRouter(r, userService, authService)
	})
	router.Route("/recipe", func(r chi.Router) {
		r.Route("/tags", func(r chi.Router) {
			handlers.TagRouter(r, tagService, authMiddleware)
		})
		r.Route("/ingredients", func(r chi.Router) {
			handlers.IngredientRouter(r, ingredientService, authMiddleware)
		})
		r.Route("/recipes", func(r chi.Router) {
			handlers.RecipeRouter(r, recipeService, authMiddleware)
		})
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
		broker:     broker,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the dependencies.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
