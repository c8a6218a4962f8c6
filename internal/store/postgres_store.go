package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver

	"github.com/ocx/webhooks/internal/domain"
)

// PostgresStore is the default DS backend: raw database/sql + lib/pq, no
// ORM, matching the teacher's own hand-written-SQL convention
// (internal/reputation/wallet.go).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against connURL and verifies it
// with a ping. Callers are responsible for having applied the schema in
// internal/store/schema.sql out of band (migrations are out of scope,
// SPEC_FULL.md §1).
func NewPostgresStore(connURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, target_url, secret, events FROM subscriptions WHERE id = $1`, id)

	var sub domain.Subscription
	var secret sql.NullString
	var events []byte
	if err := row.Scan(&sub.ID, &sub.TargetURL, &secret, &events); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: get subscription: %w", err)
	}
	sub.Secret = secret.String
	if len(events) > 0 {
		if err := jsonUnmarshal(events, &sub.Events); err != nil {
			return nil, fmt.Errorf("postgres: decode events: %w", err)
		}
	}
	return &sub, nil
}

func (s *PostgresStore) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	eventsJSON, err := jsonMarshal(sub.Events)
	if err != nil {
		return fmt.Errorf("postgres: encode events: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, target_url, secret, events) VALUES ($1, $2, $3, $4)`,
		sub.ID, sub.TargetURL, sub.Secret, eventsJSON)
	if err != nil {
		return fmt.Errorf("postgres: create subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	eventsJSON, err := jsonMarshal(sub.Events)
	if err != nil {
		return fmt.Errorf("postgres: encode events: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE subscriptions SET target_url = $2, secret = $3, events = $4 WHERE id = $1`,
		sub.ID, sub.TargetURL, sub.Secret, eventsJSON)
	if err != nil {
		return fmt.Errorf("postgres: update subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSubscription(ctx context.Context, id string) error {
	// Deletion cascades the cache (caller's responsibility via SC.Invalidate)
	// but never touches delivery_logs — prior logs survive subscription
	// deletion per the ownership invariant in SPEC_FULL.md §3.
	_, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSubscriptions(ctx context.Context) ([]*domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, target_url, secret, events FROM subscriptions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		var secret sql.NullString
		var events []byte
		if err := rows.Scan(&sub.ID, &sub.TargetURL, &secret, &events); err != nil {
			return nil, fmt.Errorf("postgres: scan subscription: %w", err)
		}
		sub.Secret = secret.String
		if len(events) > 0 {
			if err := jsonUnmarshal(events, &sub.Events); err != nil {
				return nil, fmt.Errorf("postgres: decode events: %w", err)
			}
		}
		out = append(out, &sub)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendDeliveryLog(ctx context.Context, row *domain.DeliveryLog) error {
	// ON CONFLICT DO NOTHING suppresses accidental duplicate inserts for the
	// same (webhook_id, attempt_number) under at-least-once redelivery, per
	// SPEC_FULL.md §4.4 — the core does not require this, but it's a cheap
	// unique index to carry.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_logs
			(id, webhook_id, subscription_id, target_url, timestamp, attempt_number, outcome, status_code, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (webhook_id, attempt_number) DO NOTHING`,
		row.ID, row.WebhookID, row.SubscriptionID, row.TargetURL, row.Timestamp,
		row.AttemptNumber, string(row.Outcome), row.StatusCode, row.Error)
	if err != nil {
		return fmt.Errorf("postgres: append delivery log: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDeliveryLogsByWebhook(ctx context.Context, webhookID string) ([]*domain.DeliveryLog, error) {
	return s.queryLogs(ctx,
		`SELECT id, webhook_id, subscription_id, target_url, timestamp, attempt_number, outcome, status_code, error
		 FROM delivery_logs WHERE webhook_id = $1 ORDER BY attempt_number`, webhookID)
}

func (s *PostgresStore) ListDeliveryLogsBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*domain.DeliveryLog, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryLogs(ctx,
		`SELECT id, webhook_id, subscription_id, target_url, timestamp, attempt_number, outcome, status_code, error
		 FROM delivery_logs WHERE subscription_id = $1 ORDER BY timestamp DESC LIMIT $2`, subscriptionID, limit)
}

func (s *PostgresStore) queryLogs(ctx context.Context, query string, args ...interface{}) ([]*domain.DeliveryLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query delivery logs: %w", err)
	}
	defer rows.Close()

	var out []*domain.DeliveryLog
	for rows.Next() {
		var row domain.DeliveryLog
		var outcome string
		if err := rows.Scan(&row.ID, &row.WebhookID, &row.SubscriptionID, &row.TargetURL,
			&row.Timestamp, &row.AttemptNumber, &outcome, &row.StatusCode, &row.Error); err != nil {
			return nil, fmt.Errorf("postgres: scan delivery log: %w", err)
		}
		row.Outcome = domain.Outcome(outcome)
		out = append(out, &row)
	}
	return out, rows.Err()
}

// PurgeDeliveryLogsOlderThan runs as a single statement inside an explicit
// transaction so a failure rolls back cleanly, per SPEC_FULL.md §4.5. It
// uses the indexed timestamp column and never touches subscriptions, so it
// cannot block ingest (SPEC_FULL.md §5).
func (s *PostgresStore) PurgeDeliveryLogsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin purge tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM delivery_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: purge delivery logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: purge rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit purge tx: %w", err)
	}
	return n, nil
}
