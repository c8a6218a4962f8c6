package queue

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/ocx/webhooks/internal/metrics"
)

// Config selects and parameterizes a Queue backend.
type Config struct {
	Backend string // "redis" (default) | "cloudtasks" | "memory"

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CloudTasks CloudTasksConfig
}

// New constructs the Queue backend named by cfg.Backend.
func New(ctx context.Context, cfg Config, m *metrics.Metrics) (Queue, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryQueue(), nil

	case "cloudtasks":
		redisBacking, err := NewRedisQueue(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, m)
		if err != nil {
			return nil, fmt.Errorf("queue: cloudtasks fallback redis: %w", err)
		}
		return NewCloudTasksQueue(ctx, cfg.CloudTasks, redisBacking)

	case "redis", "":
		return NewRedisQueue(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, m)

	default:
		return nil, fmt.Errorf("queue: unknown backend %q", cfg.Backend)
	}
}

// NewFromEnv builds a Config from environment variables.
func NewFromEnv(ctx context.Context, m *metrics.Metrics) (Queue, error) {
	db := 0
	if v := os.Getenv("OCX_WEBHOOKS_QUEUE_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	cfg := Config{
		Backend:       getEnv("OCX_WEBHOOKS_QUEUE_BACKEND", "redis"),
		RedisAddr:     getEnv("OCX_WEBHOOKS_QUEUE_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("OCX_WEBHOOKS_QUEUE_REDIS_PASSWORD"),
		RedisDB:       db,
		CloudTasks: CloudTasksConfig{
			Project:      os.Getenv("OCX_WEBHOOKS_QUEUE_CLOUDTASKS_PROJECT"),
			Location:     os.Getenv("OCX_WEBHOOKS_QUEUE_CLOUDTASKS_LOCATION"),
			QueueName:    os.Getenv("OCX_WEBHOOKS_QUEUE_CLOUDTASKS_QUEUE"),
			TargetURL:    os.Getenv("OCX_WEBHOOKS_QUEUE_CLOUDTASKS_TARGET_URL"),
			ServiceEmail: os.Getenv("OCX_WEBHOOKS_QUEUE_CLOUDTASKS_SERVICE_EMAIL"),
		},
	}
	return New(ctx, cfg, m)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
