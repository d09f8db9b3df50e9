package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/queue"
)

// Tails forecast events and prints one JSON document per line
func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	country := flag.String("country", "", "Only show events for this country (optional)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v\n", err)
	}

	q, err := queue.NewQueue(cfg.Queue)
	if err != nil {
		log.Fatalf("Error connecting to queue (type %q): %v\n", cfg.Queue.Type, err)
	}
	defer func() { _ = q.Close() }()

	events := queue.NewEventPublisher(q, cfg.Queue, nil)
	pattern := events.Pattern()
	if *country != "" {
		pattern = events.Subject(*country)
	}

	out := json.NewEncoder(os.Stdout)
	err = q.Subscribe(pattern, func(subject string, data []byte) error {
		ev, err := queue.DecodeEvent(data)
		if err != nil {
			log.Printf("Warning: skipping undecodable message on %s: %v\n", subject, err)
			return nil
		}
		return out.Encode(ev)
	})
	if err != nil {
		log.Fatalf("Error subscribing to %s: %v\n", pattern, err)
	}
	log.Printf("Listening on %s\n", pattern)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}
