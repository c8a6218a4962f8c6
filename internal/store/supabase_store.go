package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	supabase "github.com/supabase-community/supabase-go"

	"github.com/ocx/webhooks/internal/domain"
)

// SupabaseStore is an alternate DS backend that goes through Supabase's
// REST (PostgREST) interface instead of a direct database/sql connection.
// Construction mirrors the teacher's database.NewSupabaseClient (env-var
// driven, supabase.NewClient(url, key, ...)).
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore creates a Supabase-backed store. url and serviceKey are
// the project URL and service-role key; both are required.
func NewSupabaseStore(url, serviceKey string) (*SupabaseStore, error) {
	if url == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase: url and service key must be set")
	}
	client, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase: new client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

func (s *SupabaseStore) Close() error { return nil }

// subscriptionRow is the wire shape PostgREST exchanges; events is a JSON
// array column, decoded separately from the public domain.Subscription.
type subscriptionRow struct {
	ID        string   `json:"id"`
	TargetURL string   `json:"target_url"`
	Secret    string   `json:"secret"`
	Events    []string `json:"events"`
}

func (s *SupabaseStore) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	data, _, err := s.client.From("subscriptions").
		Select("id,target_url,secret,events", "exact", false).
		Eq("id", id).
		ExecuteString()
	if err != nil {
		return nil, fmt.Errorf("supabase: get subscription: %w", err)
	}

	var rows []subscriptionRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("supabase: decode subscription: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToSubscription(rows[0]), nil
}

func (s *SupabaseStore) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	row := subscriptionToRow(sub)
	_, _, err := s.client.From("subscriptions").Insert(row, false, "", "", "").ExecuteString()
	if err != nil {
		return fmt.Errorf("supabase: create subscription: %w", err)
	}
	return nil
}

func (s *SupabaseStore) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	row := subscriptionToRow(sub)
	_, _, err := s.client.From("subscriptions").Update(row, "", "").Eq("id", sub.ID).ExecuteString()
	if err != nil {
		return fmt.Errorf("supabase: update subscription: %w", err)
	}
	return nil
}

func (s *SupabaseStore) DeleteSubscription(ctx context.Context, id string) error {
	_, _, err := s.client.From("subscriptions").Delete("", "").Eq("id", id).ExecuteString()
	if err != nil {
		return fmt.Errorf("supabase: delete subscription: %w", err)
	}
	return nil
}

func (s *SupabaseStore) ListSubscriptions(ctx context.Context) ([]*domain.Subscription, error) {
	data, _, err := s.client.From("subscriptions").Select("id,target_url,secret,events", "exact", false).ExecuteString()
	if err != nil {
		return nil, fmt.Errorf("supabase: list subscriptions: %w", err)
	}
	var rows []subscriptionRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("supabase: decode subscriptions: %w", err)
	}
	out := make([]*domain.Subscription, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToSubscription(r))
	}
	return out, nil
}

func (s *SupabaseStore) AppendDeliveryLog(ctx context.Context, row *domain.DeliveryLog) error {
	payload := map[string]interface{}{
		"id":              row.ID,
		"webhook_id":      row.WebhookID,
		"subscription_id": row.SubscriptionID,
		"target_url":      row.TargetURL,
		"timestamp":       row.Timestamp.Format(time.RFC3339Nano),
		"attempt_number":  row.AttemptNumber,
		"outcome":         string(row.Outcome),
		"status_code":     row.StatusCode,
		"error":           row.Error,
	}
	_, _, err := s.client.From("delivery_logs").Insert(payload, false, "", "", "").ExecuteString()
	if err != nil {
		return fmt.Errorf("supabase: append delivery log: %w", err)
	}
	return nil
}

func (s *SupabaseStore) GetDeliveryLogsByWebhook(ctx context.Context, webhookID string) ([]*domain.DeliveryLog, error) {
	data, _, err := s.client.From("delivery_logs").
		Select("*", "exact", false).
		Eq("webhook_id", webhookID).
		Order("attempt_number", nil).
		ExecuteString()
	if err != nil {
		return nil, fmt.Errorf("supabase: get delivery logs: %w", err)
	}
	return decodeLogRows(data)
}

func (s *SupabaseStore) ListDeliveryLogsBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*domain.DeliveryLog, error) {
	if limit <= 0 {
		limit = 100
	}
	data, _, err := s.client.From("delivery_logs").
		Select("*", "exact", false).
		Eq("subscription_id", subscriptionID).
		Order("timestamp", &supabase.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteString()
	if err != nil {
		return nil, fmt.Errorf("supabase: list delivery logs: %w", err)
	}
	return decodeLogRows(data)
}

// PurgeDeliveryLogsOlderThan issues a single bulk DELETE filtered on the
// indexed timestamp column, the REST equivalent of the single-transaction
// bulk delete required by SPEC_FULL.md §4.5.
func (s *SupabaseStore) PurgeDeliveryLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	data, _, err := s.client.From("delivery_logs").
		Delete("", "").
		Lt("timestamp", cutoff.Format(time.RFC3339Nano)).
		ExecuteString()
	if err != nil {
		return 0, fmt.Errorf("supabase: purge delivery logs: %w", err)
	}
	rows, err := decodeLogRows(data)
	if err != nil {
		return 0, nil // PostgREST may return an empty body; count is best-effort.
	}
	return int64(len(rows)), nil
}

func rowToSubscription(r subscriptionRow) *domain.Subscription {
	return &domain.Subscription{ID: r.ID, TargetURL: r.TargetURL, Secret: r.Secret, Events: r.Events}
}

func subscriptionToRow(sub *domain.Subscription) subscriptionRow {
	return subscriptionRow{ID: sub.ID, TargetURL: sub.TargetURL, Secret: sub.Secret, Events: sub.Events}
}

func decodeLogRows(data string) ([]*domain.DeliveryLog, error) {
	type logRow struct {
		ID             string  `json:"id"`
		WebhookID      string  `json:"webhook_id"`
		SubscriptionID string  `json:"subscription_id"`
		TargetURL      string  `json:"target_url"`
		Timestamp      string  `json:"timestamp"`
		AttemptNumber  int     `json:"attempt_number"`
		Outcome        string  `json:"outcome"`
		StatusCode     *int    `json:"status_code"`
		Error          *string `json:"error"`
	}
	var rows []logRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("supabase: decode delivery logs: %w", err)
	}
	out := make([]*domain.DeliveryLog, 0, len(rows))
	for _, r := range rows {
		ts, _ := time.Parse(time.RFC3339Nano, r.Timestamp)
		out = append(out, &domain.DeliveryLog{
			ID: r.ID, WebhookID: r.WebhookID, SubscriptionID: r.SubscriptionID,
			TargetURL: r.TargetURL, Timestamp: ts, AttemptNumber: r.AttemptNumber,
			Outcome: domain.Outcome(r.Outcome), StatusCode: r.StatusCode, Error: r.Error,
		})
	}
	return out, nil
}
