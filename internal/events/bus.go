package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// EventEmitter is the interface for publishing CloudEvents. Both the
// in-memory EventBus and PubSubEventBus satisfy this interface.
type EventEmitter interface {
	Emit(eventType, source, subject string, data map[string]interface{})
}

// CloudEvent is the CloudEvents 1.0 envelope used for delivery-outcome
// notifications. Compatible with the CNCF CloudEvents specification.
type CloudEvent struct {
	SpecVersion    string                 `json:"specversion"`
	Type           string                 `json:"type"`
	Source         string                 `json:"source"`
	ID             string                 `json:"id"`
	Time           time.Time              `json:"time"`
	Subject        string                 `json:"subject,omitempty"`
	SubscriptionID string                 `json:"subscriptionid,omitempty"`
	Data           map[string]interface{} `json:"data"`
}

// NewCloudEvent creates a CloudEvents 1.0 compliant event.
func NewCloudEvent(eventType, source, subject string, data map[string]interface{}) *CloudEvent {
	return &CloudEvent{
		SpecVersion: "1.0",
		Type:        eventType,
		Source:      source,
		ID:          fmt.Sprintf("ce-%d", time.Now().UnixNano()),
		Time:        time.Now(),
		Subject:     subject,
		Data:        data,
	}
}

// JSON serializes the event.
func (ce *CloudEvent) JSON() ([]byte, error) {
	return json.Marshal(ce)
}

// EventBus is the in-process EventEmitter used when no Pub/Sub project is
// configured: it logs every CloudEvent and drops it. There is no
// out-of-process consumer in this repo (the analytics projection described
// in the spec is out of scope); this exists so cmd/worker always has a
// working EventEmitter to pass to the dispatcher.
type EventBus struct {
	logger *log.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		logger: log.New(log.Writer(), "[EVENTS] ", log.LstdFlags),
	}
}

// Emit creates a CloudEvent and logs it.
func (eb *EventBus) Emit(eventType, source, subject string, data map[string]interface{}) {
	event := NewCloudEvent(eventType, source, subject, data)
	payload, err := event.JSON()
	if err != nil {
		eb.logger.Printf("failed to marshal event %s: %v", event.ID, err)
		return
	}
	eb.logger.Printf("%s", payload)
}
