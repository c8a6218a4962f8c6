package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/webhooks/internal/domain"
	"github.com/ocx/webhooks/internal/store"
)

func newTestRouter(t *testing.T) (*mux.Router, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	h := New(s)
	r := mux.NewRouter()
	h.Register(r)
	return r, s
}

func TestHandler_Status_ReturnsAttemptsForWebhook(t *testing.T) {
	r, s := newTestRouter(t)
	ctx := context.Background()
	require.NoError(t, s.AppendDeliveryLog(ctx, &domain.DeliveryLog{
		ID: "1", WebhookID: "wh-1", SubscriptionID: "sub-1", AttemptNumber: 1,
		Outcome: domain.OutcomeSuccess, Timestamp: time.Now(),
	}))

	req := httptest.NewRequest(http.MethodGet, "/status/wh-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Status_UnknownWebhookReturns404(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/status/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Attempts_ListsBySubscription(t *testing.T) {
	r, s := newTestRouter(t)
	ctx := context.Background()
	require.NoError(t, s.AppendDeliveryLog(ctx, &domain.DeliveryLog{
		ID: "1", WebhookID: "wh-1", SubscriptionID: "sub-1", AttemptNumber: 1,
		Outcome: domain.OutcomeSuccess, Timestamp: time.Now(),
	}))

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1/attempts?limit=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
