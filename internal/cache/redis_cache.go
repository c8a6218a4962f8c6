package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/metrics"
	"github.com/ocx/webhooks/internal/store"
)

const keyPrefix = "subscription:"

// RedisCache is the default SC backend: a cache-aside layer over a durable
// store.Store, grounded in internal/infra/redis_adapter.go's client
// construction (DialTimeout, PoolSize, ping-on-construct).
type RedisCache struct {
	client  *redis.Client
	store   store.Store
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *log.Logger
}

// Options configures a RedisCache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache dials addr and verifies connectivity with a bounded PING,
// mirroring redis_adapter.go's NewRedisAdapter.
func NewRedisCache(opts Options, backing store.Store, m *metrics.Metrics) (*RedisCache, error) {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     20,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}

	return &RedisCache{
		client:  client,
		store:   backing,
		ttl:     opts.TTL,
		metrics: m,
		logger:  log.New(log.Writer(), "[RedisCache] ", log.LstdFlags),
	}, nil
}

func (c *RedisCache) Cache(ctx context.Context, sub *domain.Subscription) {
	c.writeThrough(ctx, sub)
}

func (c *RedisCache) writeThrough(ctx context.Context, sub *domain.Subscription) {
	blob, err := json.Marshal(sub)
	if err != nil {
		c.logger.Printf("marshal subscription %s: %v", sub.ID, err)
		c.metrics.CacheErrorsTotal.Inc()
		return
	}
	if err := c.client.Set(ctx, keyPrefix+sub.ID, blob, c.ttl).Err(); err != nil {
		c.logger.Printf("set subscription %s: %v", sub.ID, err)
		c.metrics.CacheErrorsTotal.Inc()
	}
}

// Get implements the cache-aside read: try Redis, and on any miss, corrupt
// entry, or Redis outage, fall through to the durable store and repopulate
// the cache on a store hit (SPEC_FULL.md §4.3).
func (c *RedisCache) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	raw, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if err == nil {
		var sub domain.Subscription
		if jsonErr := json.Unmarshal(raw, &sub); jsonErr == nil {
			c.metrics.CacheHitsTotal.Inc()
			return &sub, nil
		}
		c.logger.Printf("corrupt cache entry for %s, falling through", id)
		c.metrics.CacheErrorsTotal.Inc()
	} else if err != redis.Nil {
		c.logger.Printf("get subscription %s: %v", id, err)
		c.metrics.CacheErrorsTotal.Inc()
	}

	c.metrics.CacheMissesTotal.Inc()
	sub, err := c.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cache: durable store fallback: %w", err)
	}
	if sub == nil {
		return nil, nil
	}
	c.writeThrough(ctx, sub)
	return sub, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		c.logger.Printf("invalidate subscription %s: %v", id, err)
		c.metrics.CacheErrorsTotal.Inc()
	}
}
