package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/store"
)

func TestMemoryCache_GetFallsThroughOnMiss(t *testing.T) {
	backing := store.NewMemoryStore()
	require.NoError(t, backing.CreateSubscription(context.Background(), &domain.Subscription{
		ID: "sub-1", TargetURL: "https://example.com/hook",
	}))

	c := NewMemoryCache(backing, time.Minute)

	sub, err := c.Get(context.Background(), "sub-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub-1", sub.ID)

	// Second read should be served from cache; mutate the backing store to
	// confirm the cached copy is actually used.
	require.NoError(t, backing.DeleteSubscription(context.Background(), "sub-1"))
	sub2, err := c.Get(context.Background(), "sub-1")
	require.NoError(t, err)
	require.NotNil(t, sub2)
}

func TestMemoryCache_GetReturnsNilOnDurableMiss(t *testing.T) {
	backing := store.NewMemoryStore()
	c := NewMemoryCache(backing, time.Minute)

	sub, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestMemoryCache_InvalidateForcesFallThrough(t *testing.T) {
	backing := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, backing.CreateSubscription(ctx, &domain.Subscription{
		ID: "sub-1", TargetURL: "https://example.com/hook",
	}))

	c := NewMemoryCache(backing, time.Minute)
	_, err := c.Get(ctx, "sub-1")
	require.NoError(t, err)

	c.Invalidate(ctx, "sub-1")
	require.NoError(t, backing.DeleteSubscription(ctx, "sub-1"))

	sub, err := c.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestMemoryCache_ExpiresEntries(t *testing.T) {
	backing := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, backing.CreateSubscription(ctx, &domain.Subscription{
		ID: "sub-1", TargetURL: "https://example.com/hook",
	}))

	c := NewMemoryCache(backing, time.Millisecond)
	_, err := c.Get(ctx, "sub-1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, backing.DeleteSubscription(ctx, "sub-1"))

	sub, err := c.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.Nil(t, sub)
}
