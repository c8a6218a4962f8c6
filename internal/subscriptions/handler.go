// Package subscriptions implements the subscriptions CRUD collaborator
// surface: POST/GET/PATCH/DELETE /subscriptions[/{id}], backed by the
// durable store and kept in sync with the subscription cache on writes.
package subscriptions

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ocx/webhooks/internal/cache"
	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/store"
)

// Handler implements the subscriptions CRUD surface.
type Handler struct {
	store  store.Store
	cache  cache.Cache
	logger *slog.Logger
}

// New builds a subscriptions Handler.
func New(s store.Store, c cache.Cache) *Handler {
	return &Handler{store: s, cache: c, logger: slog.Default().With("component", "subscriptions")}
}

// Register mounts the subscriptions routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/subscriptions", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/subscriptions", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/subscriptions/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/subscriptions/{id}", h.handleUpdate).Methods(http.MethodPatch)
	r.HandleFunc("/subscriptions/{id}", h.handleDelete).Methods(http.MethodDelete)
}

type subscriptionRequest struct {
	TargetURL string   `json:"target_url"`
	Secret    string   `json:"secret,omitempty"`
	Events    []string `json:"events,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "InvalidPayload", "request body is not valid JSON")
		return
	}

	sub := &domain.Subscription{
		ID:        uuid.New().String(),
		TargetURL: req.TargetURL,
		Secret:    req.Secret,
		Events:    req.Events,
	}
	if err := sub.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "InvalidSubscription", err.Error())
		return
	}

	if err := h.store.CreateSubscription(r.Context(), sub); err != nil {
		h.logger.Error("create subscription failed", "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "StoreUnavailable", "could not persist subscription")
		return
	}
	h.cache.Cache(r.Context(), sub)

	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListSubscriptions(r.Context())
	if err != nil {
		h.logger.Error("list subscriptions failed", "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "StoreUnavailable", "could not list subscriptions")
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sub, err := h.cache.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get subscription failed", "error", err, "id", id)
		writeJSONError(w, http.StatusServiceUnavailable, "StoreUnavailable", "could not read subscription")
		return
	}
	if sub == nil {
		writeJSONError(w, http.StatusNotFound, "SubscriptionNotFound", "no subscription with that id")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := h.store.GetSubscription(r.Context(), id)
	if err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, "StoreUnavailable", "could not read subscription")
		return
	}
	if existing == nil {
		writeJSONError(w, http.StatusNotFound, "SubscriptionNotFound", "no subscription with that id")
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "InvalidPayload", "request body is not valid JSON")
		return
	}
	if req.TargetURL != "" {
		existing.TargetURL = req.TargetURL
	}
	if req.Secret != "" {
		existing.Secret = req.Secret
	}
	if req.Events != nil {
		existing.Events = req.Events
	}
	if err := existing.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "InvalidSubscription", err.Error())
		return
	}

	if err := h.store.UpdateSubscription(r.Context(), existing); err != nil {
		h.logger.Error("update subscription failed", "error", err, "id", id)
		writeJSONError(w, http.StatusServiceUnavailable, "StoreUnavailable", "could not persist subscription")
		return
	}
	h.cache.Cache(r.Context(), existing)

	writeJSON(w, http.StatusOK, existing)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteSubscription(r.Context(), id); err != nil {
		h.logger.Error("delete subscription failed", "error", err, "id", id)
		writeJSONError(w, http.StatusServiceUnavailable, "StoreUnavailable", "could not delete subscription")
		return
	}
	h.cache.Invalidate(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
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
