// Package status implements the status read API collaborator: read-only
// projections over delivery_logs for operators and the out-of-scope
// analytics surface.
package status

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ocx/webhooks/internal/store"
)

// Handler implements the status read API.
type Handler struct {
	store  store.Store
	logger *slog.Logger
}

// New builds a status Handler.
func New(s store.Store) *Handler {
	return &Handler{store: s, logger: slog.Default().With("component", "status")}
}

// Register mounts the status routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/status/{webhook_id}", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/subscriptions/{id}/attempts", h.handleAttempts).Methods(http.MethodGet)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	webhookID := mux.Vars(r)["webhook_id"]
	logs, err := h.store.GetDeliveryLogsByWebhook(r.Context(), webhookID)
	if err != nil {
		h.logger.Error("get delivery logs failed", "error", err, "webhook_id", webhookID)
		writeJSONError(w, http.StatusServiceUnavailable, "StoreUnavailable", "could not read delivery logs")
		return
	}
	if len(logs) == 0 {
		writeJSONError(w, http.StatusNotFound, "WebhookNotFound", "no delivery attempts recorded for that webhook id")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) handleAttempts(w http.ResponseWriter, r *http.Request) {
	subscriptionID := mux.Vars(r)["id"]
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	logs, err := h.store.ListDeliveryLogsBySubscription(r.Context(), subscriptionID, limit)
	if err != nil {
		h.logger.Error("list delivery logs failed", "error", err, "subscription_id", subscriptionID)
		writeJSONError(w, http.StatusServiceUnavailable, "StoreUnavailable", "could not read delivery logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Kind: kind, Message: message})
}
