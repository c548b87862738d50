package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tahcohcat/rpglife/internal/metrics"
)

// NewRouter mounts the API under /api/v1 next to /metrics and /healthz.
func NewRouter(h *Handler, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestMiddleware(m))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}

	RegisterRoutes(r.PathPrefix("/api/v1").Subrouter(), h)
	return r
}
