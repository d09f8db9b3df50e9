package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/queue"
	"github.com/airaware/aqi-analytics/internal/services"
	"github.com/airaware/aqi-analytics/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	datasetPath := flag.String("dataset", "", "Dataset CSV (overrides config)")
	output := flag.String("output", "", "Results directory (overrides config)")
	workers := flag.Int("workers", 0, "Countries forecast in parallel (0 = config)")
	printJSON := flag.Bool("json", false, "Print the batch report as JSON")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v\n", err)
	}
	if *datasetPath != "" {
		cfg.Dataset.Path = *datasetPath
	}
	if *output != "" {
		cfg.Storage.ResultsDir = *output
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		log.Fatalf("Error initializing logger: %v\n", err)
	}

	store, err := storage.NewFileStore(cfg.Storage.ResultsDir, logger)
	if err != nil {
		log.Fatalf("Error opening results directory: %v\n", err)
	}
	cache := dataset.NewCache(dataset.NewFileLoader(cfg.Dataset.Path), cfg.Dataset, logger)

	var events *queue.EventPublisher
	if q, err := queue.NewQueue(cfg.Queue); err == nil {
		events = queue.NewEventPublisher(q, cfg.Queue, logger)
		defer func() { _ = events.Close() }()
	} else if !errors.Is(err, queue.ErrDisabled) {
		log.Printf("Warning: forecast events disabled: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := services.NewForecastService(logger, cache, store, events, cfg.Forecast)
	report, err := svc.RunBatch(ctx, services.BatchOptions{Workers: *workers})
	if err != nil {
		log.Fatalf("Error running batch forecast: %v\n", err)
	}

	if *printJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("Error encoding report: %v\n", err)
		}
		return
	}

	fmt.Printf("Run %s: %d succeeded, %d failed in %s\n", report.RunID, report.Succeeded, report.Failed, report.Duration)
	for _, cf := range report.Countries {
		if cf.Error != "" {
			fmt.Printf("  %-24s FAILED  %s: %s\n", cf.Country, cf.Code, cf.Error)
			continue
		}
		fmt.Printf("  %-24s R2=%.4f MAE=%.4f RMSE=%.4f\n", cf.Country, cf.Metrics.R2, cf.Metrics.MAE, cf.Metrics.RMSE)
	}
	fmt.Printf("Results written to %s\n", store.Dir())
}
