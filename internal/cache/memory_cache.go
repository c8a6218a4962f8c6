package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/store"
)

type memoryCacheEntry struct {
	sub     *domain.Subscription
	expires time.Time
}

// MemoryCache is an in-process cache-aside SC used by tests and local
// development in place of RedisCache — same fall-through semantics, no
// network dependency.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
	store   store.Store
	ttl     time.Duration
}

// NewMemoryCache builds a MemoryCache fronting backing with the given TTL.
// A zero TTL means entries never expire on their own (still subject to
// explicit Invalidate).
func NewMemoryCache(backing store.Store, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryCacheEntry),
		store:   backing,
		ttl:     ttl,
	}
}

func (c *MemoryCache) Cache(ctx context.Context, sub *domain.Subscription) {
	c.put(sub)
}

func (c *MemoryCache) put(sub *domain.Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy := *sub
	var expires time.Time
	if c.ttl > 0 {
		expires = time.Now().Add(c.ttl)
	}
	c.entries[sub.ID] = memoryCacheEntry{sub: &copy, expires: expires}
}

func (c *MemoryCache) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if ok && !entry.expires.IsZero() && time.Now().After(entry.expires) {
		delete(c.entries, id)
		ok = false
	}
	c.mu.Unlock()

	if ok {
		copy := *entry.sub
		return &copy, nil
	}

	sub, err := c.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}
	c.put(sub)
	return sub, nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
