package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/store"
)

func TestSweeper_PurgeOldLogs(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	old := &domain.DeliveryLog{ID: "1", WebhookID: "wh-old", AttemptNumber: 1,
		Outcome: domain.OutcomeSuccess, Timestamp: time.Now().Add(-100 * time.Hour)}
	fresh := &domain.DeliveryLog{ID: "2", WebhookID: "wh-fresh", AttemptNumber: 1,
		Outcome: domain.OutcomeSuccess, Timestamp: time.Now()}
	require.NoError(t, s.AppendDeliveryLog(ctx, old))
	require.NoError(t, s.AppendDeliveryLog(ctx, fresh))

	sw := New(s, nil, Config{Horizon: 72 * time.Hour, SweepInterval: time.Hour})
	deleted, err := sw.PurgeOldLogs(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	remaining, err := s.GetDeliveryLogsByWebhook(ctx, "wh-fresh")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	gone, err := s.GetDeliveryLogsByWebhook(ctx, "wh-old")
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func TestSweeper_RunAndStop(t *testing.T) {
	s := store.NewMemoryStore()
	sw := New(s, nil, Config{Horizon: time.Hour, SweepInterval: 10 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		sw.Run()
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	sw.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop in time")
	}
}
