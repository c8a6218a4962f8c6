// Package queue provides the durable job queue (JS): a ready queue plus a
// delayed/retry schedule that promotes jobs back to ready once their delay
// elapses.
package queue

import (
	"context"
	"time"

	"github.com/ocx/webhooks/internal/domain"
)

// Queue is the contract IE and DW depend on.
type Queue interface {
	// Enqueue makes job immediately available for dequeue.
	Enqueue(ctx context.Context, job domain.DeliveryJob) error
	// EnqueueIn schedules job to become available for dequeue after delay
	// elapses — used for retry backoff.
	EnqueueIn(ctx context.Context, job domain.DeliveryJob, delay time.Duration) error
	// DequeueBlocking waits up to timeout for a ready job. A nil job with a
	// nil error means the wait timed out with nothing ready.
	DequeueBlocking(ctx context.Context, timeout time.Duration) (*domain.DeliveryJob, error)
	Close() error
}
