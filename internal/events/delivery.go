package events

import "github.com/ocx/webhooks/internal/domain"

// Event types emitted for each completed delivery attempt, named
// "webhook.delivery.<outcome>" per SPEC_FULL.md §4.2.
const (
	EventDeliverySucceeded     = "webhook.delivery.success"
	EventDeliveryAttemptFailed = "webhook.delivery.failed_attempt"
	EventDeliveryFailed        = "webhook.delivery.failure"
)

const deliverySource = "/ingest"

// eventTypeForOutcome maps a delivery outcome to its CloudEvent type.
func eventTypeForOutcome(outcome domain.Outcome) string {
	switch outcome {
	case domain.OutcomeSuccess:
		return EventDeliverySucceeded
	case domain.OutcomeFailure:
		return EventDeliveryFailed
	default:
		return EventDeliveryAttemptFailed
	}
}

// EmitDeliveryOutcome publishes a CloudEvent describing one completed
// delivery attempt. emitter is nil-safe: a nil emitter is a silent no-op, so
// callers that run without an events backend configured don't need a guard.
func EmitDeliveryOutcome(emitter EventEmitter, log *domain.DeliveryLog) {
	if emitter == nil || log == nil {
		return
	}
	data := map[string]interface{}{
		"webhook_id":      log.WebhookID,
		"subscription_id": log.SubscriptionID,
		"target_url":      log.TargetURL,
		"attempt_number":  log.AttemptNumber,
		"outcome":         string(log.Outcome),
	}
	if log.StatusCode != nil {
		data["status_code"] = *log.StatusCode
	}
	if log.Error != nil {
		data["error"] = *log.Error
	}
	emitter.Emit(eventTypeForOutcome(log.Outcome), deliverySource, log.WebhookID, data)
}
