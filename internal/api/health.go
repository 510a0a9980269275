package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mbertsch/chatlab/internal/store"
)

// HealthHandler reports service and store health.
type HealthHandler struct {
	repo store.RecordStore
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(repo store.RecordStore) *HealthHandler {
	return &HealthHandler{repo: repo}
}

// Health reports overall service status including store reachability.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"checks": map[string]string{},
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["checks"].(map[string]string)["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/healthz", h.Health)
}
