package store

import (
	"fmt"
	"os"
)

// Config selects and parameterizes a Store backend.
type Config struct {
	Backend string // "postgres" (default) | "supabase" | "spanner"

	PostgresURL string

	SupabaseURL        string
	SupabaseServiceKey string

	SpannerProject  string
	SpannerInstance string
	SpannerDatabase string
}

// New constructs the Store backend named by cfg.Backend, mirroring
// internal/reputation/factory.go's NewReputationStore switch.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "supabase":
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey)

	case "spanner":
		if cfg.SpannerProject == "" || cfg.SpannerInstance == "" || cfg.SpannerDatabase == "" {
			return nil, fmt.Errorf("store: spanner configuration incomplete")
		}
		return NewSpannerStore(cfg.SpannerProject, cfg.SpannerInstance, cfg.SpannerDatabase)

	case "postgres", "":
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("store: postgres_url is required for the postgres backend")
		}
		return NewPostgresStore(cfg.PostgresURL)

	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}

// NewFromEnv builds a Config from environment variables and constructs the
// selected backend, mirroring NewReputationStoreFromEnv.
func NewFromEnv() (Store, error) {
	cfg := Config{
		Backend:            getEnv("OCX_WEBHOOKS_DATABASE_BACKEND", "postgres"),
		PostgresURL:        os.Getenv("OCX_WEBHOOKS_DATABASE_POSTGRES_URL"),
		SupabaseURL:        os.Getenv("OCX_WEBHOOKS_DATABASE_SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("OCX_WEBHOOKS_DATABASE_SUPABASE_SERVICE_KEY"),
		SpannerProject:     os.Getenv("OCX_WEBHOOKS_DATABASE_SPANNER_PROJECT"),
		SpannerInstance:    os.Getenv("OCX_WEBHOOKS_DATABASE_SPANNER_INSTANCE"),
		SpannerDatabase:    os.Getenv("OCX_WEBHOOKS_DATABASE_SPANNER_DATABASE"),
	}
	return New(cfg)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
