package cache

import (
	"os"
	"strconv"
	"time"

	"github.com/ocx/webhooks/internal/metrics"
	"github.com/ocx/webhooks/internal/store"
)

// Config selects and parameterizes a Cache backend.
type Config struct {
	Backend string // "redis" (default) | "memory"

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// New constructs the Cache backend named by cfg.Backend.
func New(cfg Config, backing store.Store, m *metrics.Metrics) (Cache, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryCache(backing, cfg.TTL), nil
	case "redis", "":
		return NewRedisCache(Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		}, backing, m)
	default:
		return nil, &unknownBackendError{cfg.Backend}
	}
}

type unknownBackendError struct{ backend string }

func (e *unknownBackendError) Error() string {
	return "cache: unknown backend \"" + e.backend + "\""
}

// NewFromEnv builds a Config from environment variables.
func NewFromEnv(backing store.Store, m *metrics.Metrics) (Cache, error) {
	ttlSeconds := 300
	if v := os.Getenv("OCX_WEBHOOKS_CACHE_TTL_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			ttlSeconds = parsed
		}
	}
	db := 0
	if v := os.Getenv("OCX_WEBHOOKS_CACHE_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	cfg := Config{
		Backend:       getEnv("OCX_WEBHOOKS_CACHE_BACKEND", "redis"),
		RedisAddr:     getEnv("OCX_WEBHOOKS_CACHE_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("OCX_WEBHOOKS_CACHE_REDIS_PASSWORD"),
		RedisDB:       db,
		TTL:           time.Duration(ttlSeconds) * time.Second,
	}
	return New(cfg, backing, m)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
