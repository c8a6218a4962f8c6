package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ocx/webhooks/internal/domain"
)

// MemoryStore is an in-process Store used by tests and local development.
// It is not a backend selectable through New/NewFromEnv — it exists purely so the
// worker/ingest/retention packages can be exercised without a live
// Postgres/Supabase/Spanner instance.
type MemoryStore struct {
	mu   sync.Mutex
	subs map[string]*domain.Subscription
	logs []*domain.DeliveryLog
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*domain.Subscription)}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, nil
	}
	copy := *sub
	return &copy, nil
}

func (m *MemoryStore) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *sub
	m.subs[sub.ID] = &copy
	return nil
}

func (m *MemoryStore) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	return m.CreateSubscription(ctx, sub)
}

func (m *MemoryStore) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
	return nil
}

func (m *MemoryStore) ListSubscriptions(ctx context.Context) ([]*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		copy := *s
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AppendDeliveryLog(ctx context.Context, row *domain.DeliveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.logs {
		if existing.WebhookID == row.WebhookID && existing.AttemptNumber == row.AttemptNumber {
			return nil // suppress duplicate, same as the Postgres ON CONFLICT DO NOTHING
		}
	}
	copy := *row
	m.logs = append(m.logs, &copy)
	return nil
}

func (m *MemoryStore) GetDeliveryLogsByWebhook(ctx context.Context, webhookID string) ([]*domain.DeliveryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DeliveryLog
	for _, row := range m.logs {
		if row.WebhookID == webhookID {
			copy := *row
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (m *MemoryStore) ListDeliveryLogsBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*domain.DeliveryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []*domain.DeliveryLog
	for _, row := range m.logs {
		if row.SubscriptionID == subscriptionID {
			copy := *row
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) PurgeDeliveryLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*domain.DeliveryLog
	var deleted int64
	for _, row := range m.logs {
		if row.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.logs = kept
	return deleted, nil
}
