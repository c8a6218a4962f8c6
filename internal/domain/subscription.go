// Package domain holds the plain data types shared by every component of
// the delivery pipeline: subscriptions, in-flight delivery jobs, and
// persisted delivery log rows.
package domain

import (
	"fmt"
	"net/url"
)

// Subscription is a registered webhook target. Identity is stable for the
// life of the record; Secret is never logged and Events is advisory only —
// the delivery worker does not filter by it (see worker package).
type Subscription struct {
	ID        string   `json:"id"`
	TargetURL string   `json:"target_url"`
	Secret    string   `json:"secret,omitempty"`
	Events    []string `json:"events,omitempty"`
}

// Validate checks the invariants required at create/update time: a
// non-empty, syntactically valid absolute http(s) URL.
func (s *Subscription) Validate() error {
	if s.TargetURL == "" {
		return fmt.Errorf("target_url is required")
	}
	u, err := url.Parse(s.TargetURL)
	if err != nil {
		return fmt.Errorf("target_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target_url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("target_url must be absolute")
	}
	return nil
}

// AcceptsEvent reports whether the subscription's advisory event filter
// would admit eventType. It is never consulted by the delivery worker; it
// exists only for a future ingest-side filter (see SPEC_FULL.md §4.2).
func (s *Subscription) AcceptsEvent(eventType string) bool {
	if len(s.Events) == 0 {
		return true
	}
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}
