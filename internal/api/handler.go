//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/mbertsch/chatlab/internal/interaction"
	"github.com/mbertsch/chatlab/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo    store.RecordStore
	manager *interaction.Manager
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.RecordStore, manager *interaction.Manager) *Handler {
	return &Handler{repo: repo, manager: manager}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
