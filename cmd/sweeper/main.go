package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ocx/webhooks/internal/config"
	"github.com/ocx/webhooks/internal/metrics"
	"github.com/ocx/webhooks/internal/retention"
	"github.com/ocx/webhooks/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, continuing with process environment")
	}

	cfg := config.Get()
	m := metrics.New()

	ds, err := store.NewFromEnv()
	if err != nil {
		log.Fatalf("durable store init failed: %v", err)
	}
	defer ds.Close()

	sweeper := retention.New(ds, m, retention.Config{
		Horizon:       time.Duration(cfg.Retention.HorizonHours) * time.Hour,
		SweepInterval: time.Duration(cfg.Retention.SweepIntervalMinutes) * time.Minute,
	})

	go sweeper.Run()
	slog.Info("retention sweeper started",
		"horizon_hours", cfg.Retention.HorizonHours,
		"sweep_interval_minutes", cfg.Retention.SweepIntervalMinutes)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("received shutdown signal, stopping sweeper")
	sweeper.Stop()
	slog.Info("sweeper stopped")
}
