package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ocx/webhooks/internal/api"
	"github.com/ocx/webhooks/internal/cache"
	"github.com/ocx/webhooks/internal/config"
	"github.com/ocx/webhooks/internal/ingest"
	"github.com/ocx/webhooks/internal/metrics"
	"github.com/ocx/webhooks/internal/queue"
	"github.com/ocx/webhooks/internal/status"
	"github.com/ocx/webhooks/internal/store"
	"github.com/ocx/webhooks/internal/subscriptions"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, continuing with process environment")
	}

	cfg := config.Get()
	m := metrics.New()
	ctx := context.Background()

	ds, err := store.NewFromEnv()
	if err != nil {
		log.Fatalf("durable store init failed: %v", err)
	}
	defer ds.Close()

	sc, err := cache.NewFromEnv(ds, m)
	if err != nil {
		slog.Warn("subscription cache backend unavailable, falling back to in-memory cache", "error", err)
		sc = cache.NewMemoryCache(ds, 5*time.Minute)
	}

	q, err := queue.NewFromEnv(ctx, m)
	if err != nil {
		log.Fatalf("job queue init failed: %v", err)
	}
	defer q.Close()

	ingestHandler := ingest.New(sc, q, ingest.DefaultConfig())
	subsHandler := subscriptions.New(ds, sc)
	statusHandler := status.New(ds)

	server := api.New(":"+cfg.Server.Port, ingestHandler, subsHandler, statusHandler)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("received shutdown signal, shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("webhooks api starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed to start: %v", err)
	}
	slog.Info("server stopped")
}
