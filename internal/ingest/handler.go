// Package ingest implements the ingest endpoint (IE): the HTTP surface
// that accepts an event payload for a subscription and hands it off to the
// job queue before replying.
package ingest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ocx/webhooks/internal/cache"
	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/queue"
)

// Config parameterizes the ingest handler.
type Config struct {
	MaxPayloadBytes int64
}

// DefaultConfig returns the defaults named in SPEC_FULL.md §4.1.
func DefaultConfig() Config {
	return Config{MaxPayloadBytes: 1 << 20} // 1 MiB
}

// errorBody is the machine-readable error envelope returned on every
// non-2xx ingest response.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Handler implements the ingest endpoint.
type Handler struct {
	cache  cache.Cache
	queue  queue.Queue
	cfg    Config
	logger *slog.Logger
}

// New builds an ingest Handler.
func New(c cache.Cache, q queue.Queue, cfg Config) *Handler {
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = DefaultConfig().MaxPayloadBytes
	}
	return &Handler{cache: c, queue: q, cfg: cfg, logger: slog.Default().With("component", "ingest")}
}

// Register mounts the ingest route on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/ingest/{subscription_id}", h.handleIngest).Methods(http.MethodPost)
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	subscriptionID := mux.Vars(r)["subscription_id"]

	sub, err := h.cache.Get(r.Context(), subscriptionID)
	if err != nil {
		h.logger.Error("subscription lookup failed", "error", err, "subscription_id", subscriptionID)
		writeError(w, http.StatusServiceUnavailable, "StoreUnavailable", "subscription lookup is temporarily unavailable")
		return
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, "SubscriptionNotFound", "no subscription with that id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxPayloadBytes)
	var payload json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PayloadTooLarge", "request body exceeds the configured limit")
			return
		}
		writeError(w, http.StatusBadRequest, "InvalidPayload", "request body is not valid JSON")
		return
	}

	webhookID := uuid.New().String()
	job := domain.DeliveryJob{
		SubscriptionID: subscriptionID,
		Payload:        payload,
		WebhookID:      webhookID,
		Attempt:        1,
	}
	if v := r.Header.Get("X-Event-Type"); v != "" {
		job.EventType = &v
	}
	if v := r.Header.Get("X-Signature"); v != "" {
		job.Signature = &v
	}

	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("enqueue failed", "error", err, "webhook_id", webhookID)
		writeError(w, http.StatusServiceUnavailable, "JobStoreUnavailable", "could not durably enqueue the delivery job")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"webhook_id": webhookID})
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Kind: kind, Message: message})
}
