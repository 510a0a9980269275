package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbertsch/chatlab/internal/domain"
	"github.com/mbertsch/chatlab/internal/export"
	"github.com/mbertsch/chatlab/internal/identity"
	"github.com/mbertsch/chatlab/internal/store"
)

// AdminHandler serves the privileged aggregation view and CSV exports.
type AdminHandler struct {
	*Handler
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(base *Handler) *AdminHandler {
	return &AdminHandler{Handler: base}
}

// RegisterRoutes registers admin routes. Every route is gated on the
// elevated permission level.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin/interactions", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/", h.List)
		r.Get("/export", h.ExportAll)
		r.Get("/{recordID}/export", h.ExportOne)
		r.Delete("/{recordID}", h.DeleteRecord)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identity.IsAdmin(r.Context()) {
			Error(w, http.StatusForbidden, "admin permission required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) allRecords(r *http.Request) ([]*store.AppRecord, error) {
	engine := h.manager.AdminEngine(identity.MemberFromContext(r.Context()))
	return engine.All(r.Context())
}

// List returns one aggregated row per participant, newest record winning.
// An empty store renders as an empty list, never an error.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.allRecords(r)
	if err != nil {
		slog.Error("Failed to list interaction records", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list interactions")
		return
	}
	rows := export.Aggregate(records)
	JSON(w, http.StatusOK, map[string]interface{}{"rows": rows})
}

// httpSink streams a produced CSV file as an attachment download.
type httpSink struct {
	w http.ResponseWriter
}

func (s httpSink) Download(filename string, csv []byte) error {
	s.w.Header().Set("Content-Type", "text/csv")
	s.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, err := s.w.Write(csv)
	return err
}

// ExportAll streams the bulk CSV of every participant's deduplicated
// interaction. Nothing to export responds 204 and produces no file.
func (h *AdminHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	records, err := h.allRecords(r)
	if err != nil {
		slog.Error("Failed to list interaction records", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list interactions")
		return
	}

	var interactions []*domain.Interaction
	for _, row := range export.Aggregate(records) {
		if row.Interaction != nil {
			interactions = append(interactions, row.Interaction)
		}
	}
	if len(interactions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.export(w, interactions, export.BulkFilename(time.Now()))
}

// ExportOne streams the CSV of a single record's interaction.
func (h *AdminHandler) ExportOne(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")
	records, err := h.allRecords(r)
	if err != nil {
		slog.Error("Failed to list interaction records", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list interactions")
		return
	}

	for _, rec := range records {
		if rec.ID != recordID {
			continue
		}
		in := rec.Data.Interaction
		if in == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.export(w, []*domain.Interaction{in}, export.SingleFilename(in.Description, time.Now()))
		return
	}
	Error(w, http.StatusNotFound, "record not found")
}

func (h *AdminHandler) export(w http.ResponseWriter, interactions []*domain.Interaction, filename string) {
	if err := export.Export(httpSink{w: w}, interactions, filename); err != nil {
		if errors.Is(err, export.ErrMalformedTimestamp) {
			Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("Failed to export interactions", "error", err)
		Error(w, http.StatusInternalServerError, "failed to export interactions")
	}
}

// DeleteRecord removes any participant's record. The participant's next
// state-machine access recreates a fresh interaction from the template.
func (h *AdminHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")
	if err := h.repo.DeleteRecord(r.Context(), recordID); err != nil {
		slog.Error("Failed to delete record", "record_id", recordID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete record")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
