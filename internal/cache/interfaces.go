// Package cache provides the subscription cache (SC): a cache-aside,
// best-effort TTL layer fronting the durable store's subscription reads.
package cache

import (
	"context"

	"github.com/ocx/webhooks/internal/domain"
)

// Cache is the contract IE and DW depend on. Implementations must never
// return a cache-specific error to the caller — on any cache outage or
// corruption they fall through to the durable store (SPEC_FULL.md §4.3).
type Cache interface {
	// Cache write-through stores sub under its id. Errors are swallowed
	// (logged/counted) — never propagated.
	Cache(ctx context.Context, sub *domain.Subscription)
	// Get performs the cache-aside read described in SPEC_FULL.md §4.3. A
	// nil, nil return means "no such subscription" (DS miss); a non-nil
	// error means the durable store itself is unavailable.
	Get(ctx context.Context, id string) (*domain.Subscription, error)
	// Invalidate deletes any cached record for id.
	Invalidate(ctx context.Context, id string)
}
