// Package store provides the durable store (DS) adapter: the authoritative
// record of subscriptions and delivery attempts. Backends are pluggable —
// Postgres (default), Supabase REST, or Cloud Spanner — selected through
// New/NewFromEnv in factory.go, mirroring internal/reputation/factory.go's Backend switch in the
// teacher repo.
package store

import (
	"context"
	"time"

	"github.com/ocx/webhooks/internal/domain"
)

// Store is the contract every durable-store backend satisfies.
type Store interface {
	// GetSubscription returns (nil, nil) on a miss — never an error — so
	// callers (notably the cache-aside SC.Get) can distinguish "not found"
	// from "store unavailable".
	GetSubscription(ctx context.Context, id string) (*domain.Subscription, error)
	CreateSubscription(ctx context.Context, sub *domain.Subscription) error
	UpdateSubscription(ctx context.Context, sub *domain.Subscription) error
	DeleteSubscription(ctx context.Context, id string) error
	ListSubscriptions(ctx context.Context) ([]*domain.Subscription, error)

	AppendDeliveryLog(ctx context.Context, row *domain.DeliveryLog) error
	GetDeliveryLogsByWebhook(ctx context.Context, webhookID string) ([]*domain.DeliveryLog, error)
	ListDeliveryLogsBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*domain.DeliveryLog, error)

	// PurgeDeliveryLogsOlderThan deletes every delivery_logs row whose
	// timestamp is strictly before cutoff and returns the count deleted.
	PurgeDeliveryLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
