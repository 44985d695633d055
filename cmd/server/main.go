package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/campfire-social/realtime/internal/auth"
	"github.com/campfire-social/realtime/internal/config"
	"github.com/campfire-social/realtime/internal/handlers"
	"github.com/campfire-social/realtime/internal/logger"
	"github.com/campfire-social/realtime/internal/metrics"
	"github.com/campfire-social/realtime/internal/middleware"
	"github.com/campfire-social/realtime/internal/telemetry"
	"github.com/campfire-social/realtime/internal/websocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "campfire-realtime"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Campfire realtime starting ===")

	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: cfg.SamplingRate,
	})
	if err != nil {
		logger.Log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	metrics.Initialize()

	hub := websocket.NewHub()
	rateLimit := websocket.DefaultRateLimitConfig()
	rateLimit.MaxMessagesPerSecond = cfg.RateLimitPerSecond
	rateLimit.BurstSize = cfg.RateLimitBurst
	hub.SetRateLimitConfig(rateLimit)

	relay := websocket.NewRelay(hub, websocket.NewAllowList(cfg.RelayEvents...))
	verifier := auth.NewVerifier([]byte(cfg.JWTSecret))
	wsHandler := websocket.NewHandler(hub, relay, verifier, cfg.AllowedOrigins)
	webhookHandler := handlers.NewWebhookHandler(hub, cfg.WebhookSecret,
		websocket.NewAllowList(cfg.WebhookEvents...))

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if cfg.TracingEnabled {
		r.Use(middleware.TracingMiddleware(serviceName))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// Compression stays off the upgrade path; the websocket library
	// negotiates its own
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`^/api/v1/ws`})))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Trusted backend push endpoint, shared-secret auth only
	r.POST("/webhook", webhookHandler.Handle)

	api := r.Group("/api/v1")
	ws := api.Group("/ws")
	{
		// WebSocket connection endpoint - auth via query param ?token=... or Authorization header
		ws.GET("", wsHandler.HandleWebSocket)
		ws.GET("/connect", wsHandler.HandleWebSocket)

		// Diagnostics (protected)
		ws.GET("/stats", middleware.AuthMiddleware(verifier), wsHandler.HandleStats)
		ws.POST("/online", middleware.AuthMiddleware(verifier), wsHandler.HandleOnlineStatus)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.Info("Relay listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down server...")

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := hub.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("WebSocket shutdown warning", zap.Error(err))
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Fatal("Server error", zap.Error(err))
	}
	logger.Log.Info("Server exited")
}
