package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agora-social/agora/backend/internal/auth"
	"github.com/agora-social/agora/backend/internal/cache"
	"github.com/agora-social/agora/backend/internal/chat"
	"github.com/agora-social/agora/backend/internal/config"
	"github.com/agora-social/agora/backend/internal/database"
	"github.com/agora-social/agora/backend/internal/handlers"
	"github.com/agora-social/agora/backend/internal/ledger"
	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/metrics"
	"github.com/agora-social/agora/backend/internal/middleware"
	"github.com/agora-social/agora/backend/internal/repository"
	"github.com/agora-social/agora/backend/internal/telemetry"
	"github.com/agora-social/agora/backend/internal/validation"
	"github.com/agora-social/agora/backend/internal/websocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceName = "agora-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is still a no-op here
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Log.Level, cfg.Log.File); err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("=== Agora server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		Enabled:      cfg.Tracing.Enabled,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.FatalWithFields("Failed to initialize tracing", err)
	}

	if err := database.Initialize(cfg); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	if err := database.Migrate(database.DB); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	// Redis is optional; without it rate limits and idempotency keys are
	// per process
	var redisClient *cache.RedisClient
	if cfg.Redis.Host != "" {
		redisClient, err = cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, falling back to in-process cache", err)
			redisClient = nil
		}
	}

	validator := validation.NewServiceValidator(map[string]validation.Check{
		"database": database.PingContext,
		"redis": func(ctx context.Context) error {
			if redisClient == nil {
				return fmt.Errorf("redis not configured or unreachable")
			}
			return redisClient.Ping(ctx)
		},
	})
	if err := validator.ValidateServices(context.Background()); err != nil {
		logger.FatalWithFields("Required service unavailable", err)
	}

	idempotency, err := cache.NewIdempotencyStore(redisClient, cfg.Ledger.IdempotencyTTL)
	if err != nil {
		logger.FatalWithFields("Failed to create idempotency store", err)
	}

	hub := websocket.NewHub()
	go hub.Run()
	notifier := websocket.NewNotifier(hub)

	userRepo := repository.NewUserRepository(database.DB)
	postRepo := repository.NewPostRepository(database.DB)

	engagement := ledger.New(database.DB,
		ledger.WithConflictRetries(cfg.Ledger.ConflictRetries),
		ledger.WithNotifier(notifier),
		ledger.WithMetrics(metrics.Get()),
	)
	chats := chat.NewService(database.DB, notifier)
	authService := auth.NewService(userRepo, cfg.JWTSecret, cfg.TokenTTL)

	h := handlers.NewHandlers(engagement, userRepo, postRepo, chats, authService)
	h.SetIdempotencyStore(idempotency)

	wsHandler := websocket.NewHandler(hub, cfg.CORSOrigins)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.TracingMiddleware(serviceName)...)
	r.Use(middleware.MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Authorization",
		"X-Request-ID", handlers.IdempotencyKeyHeader,
	}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After", "Idempotent-Replayed"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ws", "/metrics"})))

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		}
		if err := database.Health(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		}
		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()); err != nil {
				body["redis"] = err.Error()
			}
		}
		c.JSON(status, body)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	h.RegisterRoutes(api, handlers.RouteMiddleware{
		Auth:         middleware.AuthMiddleware(authService),
		OptionalAuth: middleware.OptionalAuthMiddleware(authService),
		AuthLimit:    middleware.RateLimit(middleware.AuthRateLimitConfig()),
		WriteLimit:   middleware.RateLimit(middleware.EngagementRateLimitConfig()),
	})

	// WebSocket endpoint, auth via ?token=... or Authorization header
	api.GET("/ws", middleware.AuthMiddleware(authService), wsHandler.HandleWebSocket)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Agora backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := hub.Shutdown(ctx); err != nil {
		logger.WarnWithFields("WebSocket shutdown warning", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.WarnWithFields("Redis close failed", err)
		}
	}
	if err := database.Close(); err != nil {
		logger.WarnWithFields("Database close failed", err)
	}
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			logger.WarnWithFields("Tracer shutdown failed", err)
		}
	}

	logger.Log.Info("Server exited")
}
