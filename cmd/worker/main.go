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

	"github.com/ocx/webhooks/internal/cache"
	"github.com/ocx/webhooks/internal/config"
	"github.com/ocx/webhooks/internal/events"
	"github.com/ocx/webhooks/internal/metrics"
	"github.com/ocx/webhooks/internal/queue"
	"github.com/ocx/webhooks/internal/store"
	"github.com/ocx/webhooks/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, continuing with process environment")
	}

	cfg := config.Get()
	m := metrics.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	emitter, err := events.NewFromEnv()
	if err != nil {
		log.Fatalf("event emitter init failed: %v", err)
	}

	backoff := make([]time.Duration, len(cfg.Worker.BackoffScheduleSec))
	for i, secs := range cfg.Worker.BackoffScheduleSec {
		backoff[i] = time.Duration(secs) * time.Second
	}

	dispatcher := worker.New(q, sc, ds, emitter, m, worker.Config{
		NumWorkers:      cfg.Worker.PoolSize,
		HTTPTimeout:     time.Duration(cfg.Worker.HTTPTimeoutSec) * time.Second,
		MaxAttempts:     cfg.Worker.MaxAttempts,
		BackoffSchedule: backoff,
		DequeueTimeout:  2 * time.Second,
	})

	dispatcher.Start(ctx)
	slog.Info("webhooks delivery worker started", "pool_size", cfg.Worker.PoolSize)

	// A cloudtasks queue is push-model: Cloud Tasks calls back into this
	// process over HTTP when a scheduled job comes due. Mount that intake
	// endpoint only when the configured backend actually is cloudtasks.
	var callbackServer *http.Server
	if ctq, ok := q.(*queue.CloudTasksQueue); ok {
		mux := http.NewServeMux()
		mux.HandleFunc(queue.CallbackPath, queue.CallbackHandler(ctq))
		callbackServer = &http.Server{
			Addr:    cfg.Queue.CloudTasks.CallbackAddr,
			Handler: mux,
		}
		go func() {
			slog.Info("cloud tasks callback endpoint listening", "addr", cfg.Queue.CloudTasks.CallbackAddr, "path", queue.CallbackPath)
			if err := callbackServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("cloud tasks callback server failed", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("received shutdown signal, draining in-flight deliveries")
	if callbackServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := callbackServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("callback server shutdown error", "error", err)
		}
	}
	cancel()
	dispatcher.Stop()
	slog.Info("worker stopped")
}
