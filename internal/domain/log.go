package domain

import "time"

// DeliveryLog is one row per attempt actually executed by the delivery
// worker. Exactly one row exists per attempt; the row with the maximum
// attempt_number for a webhook_id is the only one allowed a terminal
// outcome (Success or Failure).
type DeliveryLog struct {
	ID             string    `json:"id"`
	WebhookID      string    `json:"webhook_id"`
	SubscriptionID string    `json:"subscription_id"`
	TargetURL      string    `json:"target_url"`
	Timestamp      time.Time `json:"timestamp"`
	AttemptNumber  int       `json:"attempt_number"`
	Outcome        Outcome   `json:"outcome"`
	StatusCode     *int      `json:"status_code,omitempty"`
	Error          *string   `json:"error,omitempty"`
}
