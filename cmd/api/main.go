package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hardware-inventory/internal"
	"hardware-inventory/internal/config"
	"hardware-inventory/internal/inventory"
	"hardware-inventory/internal/logging"
)

func main() {
	// Load and validate configuration
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := logging.New(cfg.LogConfig())
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []inventory.Option{
		inventory.WithLogger(logger.Named("inventory")),
		inventory.WithKey(cfg.StorageKey),
		inventory.WithPersistTimeout(cfg.PersistTimeout),
	}
	var metrics *internal.Metrics
	if cfg.EnableMetrics {
		metrics = internal.NewMetrics()
		opts = append(opts, inventory.WithMetrics(inventory.NewMetrics(metrics.Registry())))
	}

	store, err := inventory.Open(ctx, cfg.KVConfig(), opts...)
	if err != nil {
		logger.Fatal("Failed to open inventory", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}

	srv := internal.NewServer(store, internal.Options{
		Metrics:     metrics,
		Logger:      logger,
		MappingPath: cfg.MappingPath,
		EnableDocs:  cfg.EnableDocs,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting Hardware Inventory API server",
		zap.String("addr", cfg.ListenAddr),
		zap.String("driver", cfg.StorageDriver),
		zap.Bool("metrics", cfg.EnableMetrics),
		zap.Bool("docs", cfg.EnableDocs))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server failed", zap.Error(err))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.PersistTimeout+time.Second)
	defer cancel()
	if err := srv.Close(closeCtx); err != nil {
		logger.Error("Failed to flush inventory", zap.Error(err))
	}
	logger.Info("Server stopped")
}
