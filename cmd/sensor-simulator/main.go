package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/i474232898/sensor-telemetry/internal/config"
	"github.com/i474232898/sensor-telemetry/internal/reporter"
	"github.com/i474232898/sensor-telemetry/internal/scheduler"
)

func main() {
	cfg, err := config.LoadSimulator()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Client with resilience (backoff + circuit breaker).
	client := reporter.NewClient(cfg.APIURL, cfg.Timeout, reporter.BackoffConfig{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	})
	readings := reporter.NewGenerator(time.Now().UnixNano())

	// cfg.Timeout bounds each HTTP attempt; the interval bounds a reading's
	// retries so a round finishes before the next one is due.
	sched := scheduler.New(cfg.SensorIDs, cfg.Interval, cfg.Interval, readings, client)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	log.Printf("simulating %d sensors against %s every %s", len(cfg.SensorIDs), cfg.APIURL, cfg.Interval)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Println("simulator stopping")
}
