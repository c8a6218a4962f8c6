package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/webhooks/internal/cache"
	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/events"
	"github.com/ocx/webhooks/internal/metrics"
	"github.com/ocx/webhooks/internal/queue"
	"github.com/ocx/webhooks/internal/store"
)

// testHarness wires a single-worker Dispatcher against in-memory fakes so
// attempt outcomes can be observed deterministically.
type testHarness struct {
	q      *queue.MemoryQueue
	s      *store.MemoryStore
	c      cache.Cache
	d      *Dispatcher
	bus    *events.EventBus
	cancel context.CancelFunc
}

func newHarness(t *testing.T, cfg Config) *testHarness {
	t.Helper()
	q := queue.NewMemoryQueue()
	s := store.NewMemoryStore()
	c := cache.NewMemoryCache(s, time.Minute)
	bus := events.NewEventBus()

	cfg.NumWorkers = 1
	cfg.DequeueTimeout = 20 * time.Millisecond
	d := New(q, c, s, bus, nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	h := &testHarness{q: q, s: s, c: c, d: d, bus: bus, cancel: cancel}
	t.Cleanup(func() {
		d.Stop()
		cancel()
		q.Close()
	})
	return h
}

func waitForLogs(t *testing.T, s *store.MemoryStore, webhookID string, n int, timeout time.Duration) []*domain.DeliveryLog {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		logs, err := s.GetDeliveryLogsByWebhook(context.Background(), webhookID)
		require.NoError(t, err)
		if len(logs) >= n {
			return logs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d delivery logs for webhook %s", n, webhookID)
	return nil
}

func fastBackoff() []time.Duration {
	return []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}
}

// Happy path: a single attempt against a 200-returning target succeeds.
func TestDispatcher_HappyPath(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	h := newHarness(t, Config{MaxAttempts: 5, BackoffSchedule: fastBackoff()})
	ctx := context.Background()
	require.NoError(t, h.s.CreateSubscription(ctx, &domain.Subscription{ID: "sub-1", TargetURL: target.URL}))

	require.NoError(t, h.q.Enqueue(ctx, domain.DeliveryJob{SubscriptionID: "sub-1", WebhookID: "wh-1", Attempt: 1, Payload: []byte(`{}`)}))

	logs := waitForLogs(t, h.s, "wh-1", 1, time.Second)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.OutcomeSuccess, logs[0].Outcome)
	assert.Equal(t, 1, logs[0].AttemptNumber)
}

// Three transient failures then success: attempts 1-3 fail, attempt 4 succeeds.
func TestDispatcher_TransientThenSuccess(t *testing.T) {
	var calls int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	h := newHarness(t, Config{MaxAttempts: 5, BackoffSchedule: fastBackoff()})
	ctx := context.Background()
	require.NoError(t, h.s.CreateSubscription(ctx, &domain.Subscription{ID: "sub-1", TargetURL: target.URL}))
	require.NoError(t, h.q.Enqueue(ctx, domain.DeliveryJob{SubscriptionID: "sub-1", WebhookID: "wh-2", Attempt: 1, Payload: []byte(`{}`)}))

	logs := waitForLogs(t, h.s, "wh-2", 4, 2*time.Second)
	require.Len(t, logs, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, domain.OutcomeFailedAttempt, logs[i].Outcome)
		assert.Equal(t, i+1, logs[i].AttemptNumber)
	}
	assert.Equal(t, domain.OutcomeSuccess, logs[3].Outcome)
	assert.Equal(t, 4, logs[3].AttemptNumber)
}

// Exhausted retries: every attempt fails, terminal outcome is Failure at
// attempt == MaxAttempts, contiguous 1..MaxAttempts.
func TestDispatcher_ExhaustedRetries(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer target.Close()

	h := newHarness(t, Config{MaxAttempts: 3, BackoffSchedule: fastBackoff()})
	ctx := context.Background()
	require.NoError(t, h.s.CreateSubscription(ctx, &domain.Subscription{ID: "sub-1", TargetURL: target.URL}))
	require.NoError(t, h.q.Enqueue(ctx, domain.DeliveryJob{SubscriptionID: "sub-1", WebhookID: "wh-3", Attempt: 1, Payload: []byte(`{}`)}))

	logs := waitForLogs(t, h.s, "wh-3", 3, 2*time.Second)
	require.Len(t, logs, 3)
	assert.Equal(t, domain.OutcomeFailedAttempt, logs[0].Outcome)
	assert.Equal(t, domain.OutcomeFailedAttempt, logs[1].Outcome)
	assert.Equal(t, domain.OutcomeFailure, logs[2].Outcome)
	assert.Equal(t, 3, logs[2].AttemptNumber)
}

// Network error: connecting to a closed port yields a transport error,
// which is classified the same as a bad status code.
func TestDispatcher_NetworkError(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	unreachable := target.URL
	target.Close() // immediately close so connections fail

	h := newHarness(t, Config{MaxAttempts: 2, BackoffSchedule: fastBackoff()})
	ctx := context.Background()
	require.NoError(t, h.s.CreateSubscription(ctx, &domain.Subscription{ID: "sub-1", TargetURL: unreachable}))
	require.NoError(t, h.q.Enqueue(ctx, domain.DeliveryJob{SubscriptionID: "sub-1", WebhookID: "wh-4", Attempt: 1, Payload: []byte(`{}`)}))

	logs := waitForLogs(t, h.s, "wh-4", 2, 2*time.Second)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.OutcomeFailedAttempt, logs[0].Outcome)
	assert.Equal(t, domain.OutcomeFailure, logs[1].Outcome)
	assert.Nil(t, logs[1].StatusCode)
	require.NotNil(t, logs[1].Error)
}

// Missing subscription: job is dropped silently, no DeliveryLog row is ever written.
func TestDispatcher_MissingSubscriptionDropsJob(t *testing.T) {
	h := newHarness(t, Config{MaxAttempts: 5, BackoffSchedule: fastBackoff()})
	ctx := context.Background()
	require.NoError(t, h.q.Enqueue(ctx, domain.DeliveryJob{SubscriptionID: "does-not-exist", WebhookID: "wh-5", Attempt: 1, Payload: []byte(`{}`)}))

	time.Sleep(100 * time.Millisecond)
	logs, err := h.s.GetDeliveryLogsByWebhook(ctx, "wh-5")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

// Subscription deleted mid-retry: first attempt fails transiently, the
// subscription is deleted before the retry fires, and the retry is dropped
// with no further log row.
func TestDispatcher_SubscriptionDeletedMidRetry(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer target.Close()

	h := newHarness(t, Config{MaxAttempts: 5, BackoffSchedule: []time.Duration{30 * time.Millisecond, 30 * time.Millisecond, 30 * time.Millisecond, 30 * time.Millisecond, 30 * time.Millisecond}})
	ctx := context.Background()
	require.NoError(t, h.s.CreateSubscription(ctx, &domain.Subscription{ID: "sub-1", TargetURL: target.URL}))
	require.NoError(t, h.q.Enqueue(ctx, domain.DeliveryJob{SubscriptionID: "sub-1", WebhookID: "wh-6", Attempt: 1, Payload: []byte(`{}`)}))

	waitForLogs(t, h.s, "wh-6", 1, time.Second)
	require.NoError(t, h.s.DeleteSubscription(ctx, "sub-1"))
	h.c.Invalidate(ctx, "sub-1")

	time.Sleep(150 * time.Millisecond)
	logs, err := h.s.GetDeliveryLogsByWebhook(ctx, "wh-6")
	require.NoError(t, err)
	assert.Len(t, logs, 1, "retry after deletion must be dropped, not logged")
}
