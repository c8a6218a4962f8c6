package domain

import "encoding/json"

// DeliveryJob is the in-flight unit of work passed across the job store
// boundary. It is never persisted in the durable store — only the
// DeliveryLog rows it produces are.
type DeliveryJob struct {
	SubscriptionID string          `json:"subscription_id"`
	Payload        json.RawMessage `json:"payload"`
	EventType      *string         `json:"event_type,omitempty"`
	Signature      *string         `json:"signature,omitempty"`
	WebhookID      string          `json:"webhook_id"`
	Attempt        int             `json:"attempt"`
}

// NextAttempt returns a copy of the job with Attempt incremented, ready to
// be re-enqueued by the worker after a transient failure.
func (j DeliveryJob) NextAttempt() DeliveryJob {
	next := j
	next.Attempt = j.Attempt + 1
	return next
}
