package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/webhooks/internal/domain"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, domain.DeliveryJob{WebhookID: "wh-1"}))

	job, err := q.DequeueBlocking(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "wh-1", job.WebhookID)
}

func TestMemoryQueue_DequeueTimesOutWhenEmpty(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()

	job, err := q.DequeueBlocking(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestMemoryQueue_EnqueueInBecomesReadyAfterDelay(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.EnqueueIn(ctx, domain.DeliveryJob{WebhookID: "wh-delayed"}, 30*time.Millisecond))

	immediate, err := q.DequeueBlocking(ctx, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, immediate, "job should not be ready before its delay elapses")

	job, err := q.DequeueBlocking(ctx, 200*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "wh-delayed", job.WebhookID)
}
