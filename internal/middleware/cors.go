// Package middleware provides HTTP middleware shared across the API
// server, grounded in the teacher's cmd/api/main.go CORS-closure pattern.
package middleware

import "net/http"

// CORS wraps next with permissive cross-origin headers suitable for a
// webhook management API consumed by a separate operator UI.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Event-Type, X-Signature")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
