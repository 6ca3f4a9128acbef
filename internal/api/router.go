package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers the purchase endpoint plus health and metrics.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	// The purchase core is a single POST endpoint. The function-style path
	// matches what deployed mobile clients already call.
	r.Post("/", h.Dispatch)
	r.Post("/functions/v1/buy-sim", h.Dispatch)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	return r
}
