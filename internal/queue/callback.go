package queue

import (
	"io"
	"log/slog"
	"net/http"
)

// CallbackPath is the route the Cloud Tasks backend's targetURL must point
// at; it is mounted by cmd/worker only when queue.backend=cloudtasks.
const CallbackPath = "/internal/queue/callback"

// CallbackHandler returns the HTTP handler a Cloud Task hits when a
// scheduled delivery job comes due: it hands the request body to
// CloudTasksQueue.HandleCallback, which pushes the job onto the Redis
// fallback's ready list for DequeueBlocking to pick up.
func CallbackHandler(q *CloudTasksQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read callback body", http.StatusBadRequest)
			return
		}
		if err := q.HandleCallback(r.Context(), body); err != nil {
			slog.Error("cloud tasks callback failed", "error", err)
			http.Error(w, "callback processing failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
