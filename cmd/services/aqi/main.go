package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/queue"
	"github.com/airaware/aqi-analytics/internal/router"
	"github.com/airaware/aqi-analytics/internal/services"
	"github.com/airaware/aqi-analytics/internal/storage"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("AQI analytics service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal("Failed to create directories", "error", err)
	}

	store, err := storage.NewFileStore(cfg.Storage.ResultsDir, logger)
	if err != nil {
		logger.Fatal("Failed to open result store", "error", err)
	}

	cache := dataset.NewCache(dataset.NewFileLoader(cfg.Dataset.Path), cfg.Dataset, logger)
	logger.Info("Dataset configured", "path", cfg.Dataset.Path, "policy", cfg.Dataset.CachePolicy)

	// Forecast events are optional
	var events *queue.EventPublisher
	queueClient, err := queue.NewQueue(cfg.Queue)
	switch {
	case errors.Is(err, queue.ErrDisabled):
		logger.Info("Forecast events disabled")
	case err != nil:
		logger.Fatal("Failed to connect to Queue", "type", cfg.Queue.Type, "error", err)
	default:
		events = queue.NewEventPublisher(queueClient, cfg.Queue, logger)
		defer func() { _ = events.Close() }()
		logger.Info("Queue connection established", "type", cfg.Queue.Type, "subject", cfg.Queue.Subject)
	}

	app := router.New(logger, router.Services{
		Forecast:       services.NewForecastService(logger, cache, store, events, cfg.Forecast),
		Classification: services.NewClassificationService(logger, cache, store, cfg.Classification),
		Cluster:        services.NewClusterService(logger, cache, cfg.Clustering),
		Dataset:        services.NewDatasetService(logger, cache),
	}, cfg.Server)

	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
