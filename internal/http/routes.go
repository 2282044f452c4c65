package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter arma el router del servidor de operación.
// metricsHandler puede ser nil (sin /metrics).
func NewRouter(h *Health, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(WithRequestID)
	r.Use(middleware.Recoverer)
	r.Use(WithLogging)
	r.Use(WithMetrics)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	})
	return r
}
