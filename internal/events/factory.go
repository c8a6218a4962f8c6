package events

import "os"

// NewFromEnv builds the configured EventEmitter. When
// OCX_WEBHOOKS_EVENTS_PUBSUB_PROJECT is unset, delivery outcomes are only
// logged in-process; otherwise every event is also published to Pub/Sub.
func NewFromEnv() (EventEmitter, error) {
	project := os.Getenv("OCX_WEBHOOKS_EVENTS_PUBSUB_PROJECT")
	if project == "" {
		return NewEventBus(), nil
	}
	topic := os.Getenv("OCX_WEBHOOKS_EVENTS_PUBSUB_TOPIC")
	if topic == "" {
		topic = "webhooks-delivery-events"
	}
	return NewPubSubEventBus(project, topic)
}
