package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bimakw/lighter-tracker/internal/application/services"
	"github.com/bimakw/lighter-tracker/internal/config"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/lighter"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/metrics"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/storage"
	"github.com/bimakw/lighter-tracker/internal/presentation/handlers"
	"github.com/bimakw/lighter-tracker/internal/presentation/middleware"
)

const (
	sessionIdleTimeout = 24 * time.Hour
	sessionSweepPeriod = 10 * time.Minute
)

func main() {
	// Optional .env for local runs
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	logger.Info("Starting lighter-tracker API",
		zap.Int("port", cfg.API.Port),
		zap.String("history_backend", cfg.History.Backend),
		zap.String("upstream", cfg.Upstream.Endpoint()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open history store
	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open history store", zap.Error(err))
	}
	defer backend.Close()

	// Create services
	trackerMetrics := metrics.NewTrackerMetrics(prometheus.DefaultRegisterer)
	historyService := services.NewHistoryService(backend.Store, services.HistoryOptions{
		KeyPrefix:    cfg.History.KeyPrefix,
		MaxSnapshots: cfg.History.MaxSnapshots,
	}, trackerMetrics, logger)
	client := lighter.NewClient(cfg.Upstream, logger)
	trackerService := services.NewTrackerService(client, historyService, cfg.History.MaxAddresses, trackerMetrics, logger)
	sessions := services.NewSessionRegistry()

	// Create handlers
	trackerHandler := handlers.NewTrackerHandler(
		trackerService,
		sessions,
		cfg.History.Location(),
		cfg.API.SecureCookies,
		logger,
	)
	healthHandler := handlers.NewHealthHandler(backend.Name, backend.Store)

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimiter(cfg.API.RateLimitPerMinute))
		trackerHandler.RegisterRoutes(r)
	})

	// Drop idle sessions
	go sweepSessions(ctx, sessions, logger)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		logger.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, shutting down server...")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func sweepSessions(ctx context.Context, sessions *services.SessionRegistry, logger *zap.Logger) {
	ticker := time.NewTicker(sessionSweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Expire(sessionIdleTimeout); n > 0 {
				logger.Debug("Expired idle sessions",
					zap.Int("expired", n),
					zap.Int("remaining", sessions.Len()),
				)
			}
		}
	}
}

func setupLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoding := "json"
	if format == "console" {
		encoding = "console"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}
