package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/lighter-tracker/internal/application/services"
	"github.com/bimakw/lighter-tracker/internal/config"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/lighter"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/metrics"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/storage"
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
	logger := setupLogger(cfg.Log.Level)
	defer logger.Sync()

	sets := cfg.Watcher.ParseAddressSets()
	logger.Info("Starting lighter-tracker watcher",
		zap.Int("address_sets", len(sets)),
		zap.Duration("interval", cfg.Watcher.Interval),
		zap.String("history_backend", cfg.History.Backend),
	)

	// Setup context with cancellation on signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	scheduler := services.NewSnapshotScheduler(trackerService, sets, cfg.Watcher.Interval, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	server := metricsServer(cfg.Watcher.MetricsPort)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting metrics server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()

		logger.Info("Shutting down watcher...")
		scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Watcher exited with error", zap.Error(err))
	}

	st := scheduler.Stats()
	logger.Info("Watcher stopped",
		zap.Int64("rounds", st.Rounds),
		zap.Int64("checks_ok", st.ChecksOK),
		zap.Int64("checks_failed", st.ChecksFailed),
	)
}

func metricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func setupLogger(level string) *zap.Logger {
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

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}
