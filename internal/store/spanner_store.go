package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/ocx/webhooks/internal/domain"
)

// SpannerStore is an alternate DS backend for deployments that already run
// Cloud Spanner, grounded in internal/reputation/spanner.go's client
// construction and ReadWriteTransaction usage.
type SpannerStore struct {
	client *spanner.Client
	logger *log.Logger
}

// NewSpannerStore opens projects/<project>/instances/<instance>/databases/<database>.
func NewSpannerStore(project, instance, database string) (*SpannerStore, error) {
	ctx := context.Background()
	dbPath := fmt.Sprintf("projects/%s/instances/%s/databases/%s", project, instance, database)

	client, err := spanner.NewClient(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("spanner: new client: %w", err)
	}
	return &SpannerStore{
		client: client,
		logger: log.New(log.Writer(), "[SpannerStore] ", log.LstdFlags),
	}, nil
}

func (s *SpannerStore) Close() error {
	s.client.Close()
	return nil
}

func (s *SpannerStore) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	roTx := s.client.ReadOnlyTransaction().WithTimestampBound(spanner.MaxStaleness(15 * time.Second))
	defer roTx.Close()

	row, err := roTx.ReadRow(ctx, "Subscriptions", spanner.Key{id}, []string{"TargetURL", "Secret", "Events"})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("spanner: get subscription: %w", err)
	}

	var targetURL, secret string
	var events []string
	if err := row.Columns(&targetURL, &secret, &events); err != nil {
		return nil, fmt.Errorf("spanner: scan subscription: %w", err)
	}
	return &domain.Subscription{ID: id, TargetURL: targetURL, Secret: secret, Events: events}, nil
}

func (s *SpannerStore) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	return s.upsertSubscription(ctx, sub)
}

func (s *SpannerStore) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	return s.upsertSubscription(ctx, sub)
}

func (s *SpannerStore) upsertSubscription(ctx context.Context, sub *domain.Subscription) error {
	mutation := spanner.InsertOrUpdate("Subscriptions",
		[]string{"ID", "TargetURL", "Secret", "Events"},
		[]interface{}{sub.ID, sub.TargetURL, sub.Secret, sub.Events})
	_, err := s.client.Apply(ctx, []*spanner.Mutation{mutation})
	if err != nil {
		return fmt.Errorf("spanner: upsert subscription: %w", err)
	}
	return nil
}

func (s *SpannerStore) DeleteSubscription(ctx context.Context, id string) error {
	mutation := spanner.Delete("Subscriptions", spanner.Key{id})
	_, err := s.client.Apply(ctx, []*spanner.Mutation{mutation})
	if err != nil {
		return fmt.Errorf("spanner: delete subscription: %w", err)
	}
	return nil
}

func (s *SpannerStore) ListSubscriptions(ctx context.Context) ([]*domain.Subscription, error) {
	stmt := spanner.Statement{SQL: `SELECT ID, TargetURL, Secret, Events FROM Subscriptions`}
	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var out []*domain.Subscription
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("spanner: list subscriptions: %w", err)
		}
		var sub domain.Subscription
		var events []string
		if err := row.Columns(&sub.ID, &sub.TargetURL, &sub.Secret, &events); err != nil {
			return nil, fmt.Errorf("spanner: scan subscription: %w", err)
		}
		sub.Events = events
		out = append(out, &sub)
	}
	return out, nil
}

func (s *SpannerStore) AppendDeliveryLog(ctx context.Context, row *domain.DeliveryLog) error {
	mutation := spanner.InsertOrUpdate("DeliveryLogs",
		[]string{"ID", "WebhookID", "SubscriptionID", "TargetURL", "Timestamp", "AttemptNumber", "Outcome", "StatusCode", "Error"},
		[]interface{}{row.ID, row.WebhookID, row.SubscriptionID, row.TargetURL, row.Timestamp,
			row.AttemptNumber, string(row.Outcome), row.StatusCode, row.Error})
	_, err := s.client.Apply(ctx, []*spanner.Mutation{mutation})
	if err != nil {
		return fmt.Errorf("spanner: append delivery log: %w", err)
	}
	return nil
}

func (s *SpannerStore) GetDeliveryLogsByWebhook(ctx context.Context, webhookID string) ([]*domain.DeliveryLog, error) {
	stmt := spanner.Statement{
		SQL: `SELECT ID, WebhookID, SubscriptionID, TargetURL, Timestamp, AttemptNumber, Outcome, StatusCode, Error
		      FROM DeliveryLogs WHERE WebhookID = @webhookID ORDER BY AttemptNumber`,
		Params: map[string]interface{}{"webhookID": webhookID},
	}
	return s.queryLogs(ctx, stmt)
}

func (s *SpannerStore) ListDeliveryLogsBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*domain.DeliveryLog, error) {
	if limit <= 0 {
		limit = 100
	}
	stmt := spanner.Statement{
		SQL: `SELECT ID, WebhookID, SubscriptionID, TargetURL, Timestamp, AttemptNumber, Outcome, StatusCode, Error
		      FROM DeliveryLogs WHERE SubscriptionID = @subscriptionID ORDER BY Timestamp DESC LIMIT @limit`,
		Params: map[string]interface{}{"subscriptionID": subscriptionID, "limit": int64(limit)},
	}
	return s.queryLogs(ctx, stmt)
}

func (s *SpannerStore) queryLogs(ctx context.Context, stmt spanner.Statement) ([]*domain.DeliveryLog, error) {
	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var out []*domain.DeliveryLog
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("spanner: query delivery logs: %w", err)
		}
		var r domain.DeliveryLog
		var outcome string
		if err := row.Columns(&r.ID, &r.WebhookID, &r.SubscriptionID, &r.TargetURL,
			&r.Timestamp, &r.AttemptNumber, &outcome, &r.StatusCode, &r.Error); err != nil {
			return nil, fmt.Errorf("spanner: scan delivery log: %w", err)
		}
		r.Outcome = domain.Outcome(outcome)
		out = append(out, &r)
	}
	return out, nil
}

// PurgeDeliveryLogsOlderThan runs a single DML delete inside a
// read-write transaction, Spanner's equivalent of a single-transaction bulk
// delete (SPEC_FULL.md §4.5).
func (s *SpannerStore) PurgeDeliveryLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		n, err := txn.Update(ctx, spanner.Statement{
			SQL:    `DELETE FROM DeliveryLogs WHERE Timestamp < @cutoff`,
			Params: map[string]interface{}{"cutoff": cutoff},
		})
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		s.logger.Printf("purge failed: %v", err)
		return 0, fmt.Errorf("spanner: purge delivery logs: %w", err)
	}
	return deleted, nil
}
