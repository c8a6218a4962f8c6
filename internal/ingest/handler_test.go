package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/webhooks/internal/cache"
	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/queue"
	"github.com/ocx/webhooks/internal/store"
)

func newTestRouter(t *testing.T) (*mux.Router, *store.MemoryStore, *queue.MemoryQueue) {
	t.Helper()
	s := store.NewMemoryStore()
	q := queue.NewMemoryQueue()
	c := cache.NewMemoryCache(s, time.Minute)
	h := New(c, q, DefaultConfig())

	r := mux.NewRouter()
	h.Register(r)
	t.Cleanup(func() { q.Close() })
	return r, s, q
}

func TestHandler_Ingest_HappyPath(t *testing.T) {
	r, s, q := newTestRouter(t)
	require.NoError(t, s.CreateSubscription(context.Background(), &domain.Subscription{ID: "sub-1", TargetURL: "https://example.com/hook"}))

	req := httptest.NewRequest(http.MethodPost, "/ingest/sub-1", bytes.NewBufferString(`{"hello":"world"}`))
	req.Header.Set("X-Event-Type", "order.created")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["webhook_id"])

	job, err := q.DequeueBlocking(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "sub-1", job.SubscriptionID)
	assert.Equal(t, 1, job.Attempt)
	require.NotNil(t, job.EventType)
	assert.Equal(t, "order.created", *job.EventType)
}

func TestHandler_Ingest_UnknownSubscriptionReturns404(t *testing.T) {
	r, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest/missing", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Ingest_InvalidJSONReturns400(t *testing.T) {
	r, s, _ := newTestRouter(t)
	require.NoError(t, s.CreateSubscription(context.Background(), &domain.Subscription{ID: "sub-1", TargetURL: "https://example.com/hook"}))

	req := httptest.NewRequest(http.MethodPost, "/ingest/sub-1", bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Ingest_OversizedPayloadReturns413(t *testing.T) {
	r, s, _ := newTestRouter(t)
	require.NoError(t, s.CreateSubscription(context.Background(), &domain.Subscription{ID: "sub-1", TargetURL: "https://example.com/hook"}))

	big := `{"data":"` + strings.Repeat("a", int(DefaultConfig().MaxPayloadBytes)+10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/sub-1", bytes.NewBufferString(big))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
