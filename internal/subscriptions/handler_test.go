package subscriptions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/webhooks/internal/cache"
	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/store"
)

func newTestRouter(t *testing.T) (*mux.Router, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	c := cache.NewMemoryCache(s, time.Minute)
	h := New(s, c)
	r := mux.NewRouter()
	h.Register(r)
	return r, s
}

func TestHandler_CreateAndGet(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(subscriptionRequest{TargetURL: "https://example.com/hook"})
	req := httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Subscription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	getReq := httptest.NewRequest(http.MethodGet, "/subscriptions/"+created.ID, nil)
	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestHandler_CreateRejectsInvalidURL(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(subscriptionRequest{TargetURL: "not-a-url"})
	req := httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DeleteInvalidatesCache(t *testing.T) {
	r, s := newTestRouter(t)
	ctx := context.Background()
	require.NoError(t, s.CreateSubscription(ctx, &domain.Subscription{ID: "sub-1", TargetURL: "https://example.com/hook"}))

	// Warm the cache so a delete that skipped invalidation would keep
	// serving the record from it.
	warmReq := httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1", nil)
	warmRec := httptest.NewRecorder()
	r.ServeHTTP(warmRec, warmReq)
	require.Equal(t, http.StatusOK, warmRec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/subscriptions/sub-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	sub, err := s.GetSubscription(ctx, "sub-1")
	require.NoError(t, err)
	assert.Nil(t, sub)

	getReq := httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1", nil)
	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestHandler_GetMissingReturns404(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
