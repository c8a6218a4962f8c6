package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/ocx/webhooks/internal/domain"
)

type delayedItem struct {
	job     domain.DeliveryJob
	readyAt time.Time
}

type delayedHeap []delayedItem

func (h delayedHeap) Len() int            { return len(h) }
func (h delayedHeap) Less(i, j int) bool  { return h[i].readyAt.Before(h[j].readyAt) }
func (h delayedHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *delayedHeap) Push(x interface{}) { *h = append(*h, x.(delayedItem)) }
func (h *delayedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MemoryQueue is an in-process JS used by tests and local development.
type MemoryQueue struct {
	mu      sync.Mutex
	ready   []domain.DeliveryJob
	delayed delayedHeap
	closed  bool
}

// NewMemoryQueue returns an empty in-memory queue with a background
// promoter that moves due delayed jobs onto the ready list.
func NewMemoryQueue() *MemoryQueue {
	q := &MemoryQueue{}
	heap.Init(&q.delayed)
	go q.promoteLoop()
	return q
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	q.mu.Lock()
	q.ready = append(q.ready, job)
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) EnqueueIn(ctx context.Context, job domain.DeliveryJob, delay time.Duration) error {
	if delay <= 0 {
		return q.Enqueue(ctx, job)
	}
	q.mu.Lock()
	heap.Push(&q.delayed, delayedItem{job: job, readyAt: time.Now().Add(delay)})
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) DequeueBlocking(ctx context.Context, timeout time.Duration) (*domain.DeliveryJob, error) {
	deadline := time.Now().Add(timeout)
	const pollInterval = 5 * time.Millisecond
	for {
		q.mu.Lock()
		if len(q.ready) > 0 {
			job := q.ready[0]
			q.ready = q.ready[1:]
			q.mu.Unlock()
			return &job, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed || time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (q *MemoryQueue) promoteLoop() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return
		}
		now := time.Now()
		for q.delayed.Len() > 0 && !q.delayed[0].readyAt.After(now) {
			item := heap.Pop(&q.delayed).(delayedItem)
			q.ready = append(q.ready, item.job)
		}
		q.mu.Unlock()
	}
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return nil
}
