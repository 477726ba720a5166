package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/altari/auth-service/application/port/inbound"
	"github.com/altari/auth-service/application/port/outbound"
	"github.com/altari/auth-service/application/usecase"
	"github.com/altari/auth-service/infrastructure/config"
	"github.com/altari/auth-service/infrastructure/http/handler"
	"github.com/altari/auth-service/infrastructure/http/middleware"
	"github.com/altari/auth-service/infrastructure/persistence/postgres"
	"github.com/altari/auth-service/infrastructure/service/jwt"
	"github.com/altari/auth-service/infrastructure/service/logger"
	"github.com/altari/auth-service/infrastructure/service/password"
	"github.com/altari/auth-service/infrastructure/service/ratelimit"
)

func main() {
	ctx := context.Background()

	// Load configuration; missing secrets abort startup here
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "auth-service",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env": cfg.Environment,
	})

	// Connect to database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		structuredLogger.Error(ctx, "Failed to ping database", err, nil)
		log.Fatalf("Failed to ping database: %v", err)
	}
	structuredLogger.Info(ctx, "Database connection established", nil)

	// Rate limiting service (Redis-backed, noop fallback)
	var rateLimitService inbound.RateLimitService
	{
		rlLogger := logrus.New()
		rs, err := ratelimit.NewRateLimitService(ratelimit.Config{
			Enabled:       cfg.RateLimitEnabled,
			RedisURL:      cfg.RedisURL,
			Attempts:      cfg.RateLimitAttempts,
			Window:        cfg.RateLimitWindow,
			BlockDuration: cfg.RateLimitBlockDuration,
		}, rlLogger)
		if err != nil {
			structuredLogger.Warn(ctx, "Rate limit service unavailable, continuing without limits", map[string]interface{}{
				"redis_url": cfg.RedisURL,
				"error":     err.Error(),
			})
			rateLimitService = &ratelimit.NoopRateLimitService{}
		} else {
			rateLimitService = rs
		}
	}

	// Repositories and services
	userRepo := postgres.NewUserRepository(db)

	tokenService, err := jwt.NewService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	passwordService := password.NewBcryptPasswordService(cfg.BcryptCost)

	authUseCase := usecase.NewAuthUseCase(
		userRepo,
		tokenService,
		passwordService,
		structuredLogger,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)

	// Middleware and handlers
	guard := middleware.NewGuard(tokenService, structuredLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		rateLimitService,
		structuredLogger,
		cfg.RateLimitAttempts,
		cfg.RateLimitWindow,
		cfg.RateLimitBlockDuration,
	)

	authHandler := handler.NewAuthHandler(authUseCase, cfg.IsProduction())
	healthHandler := handler.NewHealthHandler(db)

	// Routes. Each route is named and annotated; the guard reads the
	// annotations at dispatch time. Unannotated routes are protected
	// access-token routes.
	router := mux.NewRouter()
	router.Use(guard.Middleware)

	router.Handle("/auth/register",
		rateLimitMiddleware.RateLimit(http.HandlerFunc(authHandler.Register))).
		Methods(http.MethodPost).Name("auth.register")
	router.Handle("/auth/login",
		rateLimitMiddleware.RateLimit(http.HandlerFunc(authHandler.Login))).
		Methods(http.MethodPost).Name("auth.login")
	router.Handle("/auth/refresh",
		rateLimitMiddleware.RateLimit(http.HandlerFunc(authHandler.Refresh))).
		Methods(http.MethodGet).Name("auth.refresh")
	router.HandleFunc("/auth/me", authHandler.Me).
		Methods(http.MethodGet).Name("auth.me")
	router.HandleFunc("/health", healthHandler.Health).
		Methods(http.MethodGet).Name("health")
	router.HandleFunc("/health/db", healthHandler.DatabaseHealth).
		Methods(http.MethodGet).Name("health.db")

	guard.Annotate("auth.register", middleware.RouteMeta{Public: true})
	guard.Annotate("auth.login", middleware.RouteMeta{Public: true})
	guard.Annotate("auth.refresh", middleware.RouteMeta{TokenType: outbound.TokenTypeRefresh})
	guard.Annotate("auth.me", middleware.RouteMeta{TokenType: outbound.TokenTypeAccess})
	guard.Annotate("health", middleware.RouteMeta{Public: true})
	guard.Annotate("health.db", middleware.RouteMeta{Public: true})

	// Compose outer middleware: correlation ID first, then CORS
	var root http.Handler = middleware.CorrelationIDMiddleware(router)
	if cfg.CORSEnabled && len(cfg.CORSAllowedOrigins) > 0 {
		root = middleware.CORSMiddleware(root, cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		structuredLogger.Info(ctx, "Starting server", map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			structuredLogger.Error(ctx, "Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down server...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}
