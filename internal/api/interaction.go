package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mbertsch/chatlab/internal/domain"
	"github.com/mbertsch/chatlab/internal/identity"
	"github.com/mbertsch/chatlab/internal/interaction"
)

// InteractionHandler serves the participant's own interaction lifecycle.
type InteractionHandler struct {
	*Handler
}

// NewInteractionHandler creates a participant-facing interaction handler.
func NewInteractionHandler(base *Handler) *InteractionHandler {
	return &InteractionHandler{Handler: base}
}

// RegisterRoutes registers participant interaction routes.
func (h *InteractionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/interaction", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/start", h.Start)
		r.Post("/next", h.Next)
		r.Put("/exchanges/{exchangeID}", h.UpdateExchange)
		r.Post("/messages", h.PostMessage)
		r.Get("/leave", h.LeaveCheck)
	})
}

// interactionResponse is the envelope for transition responses. SyncError is
// non-empty when the store write failed; the local transition still applied
// and the next mutation will resync.
type interactionResponse struct {
	Interaction *domain.Interaction `json:"interaction"`
	SyncError   string              `json:"syncError,omitempty"`
}

func resultResponse(w http.ResponseWriter, res interaction.Result) {
	resp := interactionResponse{Interaction: res.Interaction}
	if res.SyncErr != nil {
		resp.SyncError = res.SyncErr.Error()
	}
	JSON(w, http.StatusOK, resp)
}

func transitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interaction.ErrAlreadyStarted),
		errors.Is(err, interaction.ErrNotStarted),
		errors.Is(err, interaction.ErrCompleted):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, interaction.ErrExchangeNotFound):
		Error(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("Interaction operation failed", "error", err)
		Error(w, http.StatusInternalServerError, "interaction operation failed")
	}
}

// Get returns the member's interaction, initializing it on first access
// (rehydrated from the persisted record, or built fresh from the template).
func (h *InteractionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := h.manager.Session(identity.MemberFromContext(r.Context()))
	in, err := sess.Interaction(r.Context())
	if err != nil {
		transitionError(w, err)
		return
	}
	JSON(w, http.StatusOK, interactionResponse{Interaction: in})
}

// Start begins the interaction.
func (h *InteractionHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess := h.manager.Session(identity.MemberFromContext(r.Context()))
	res, err := sess.Start(r.Context())
	if err != nil {
		transitionError(w, err)
		return
	}
	resultResponse(w, res)
}

// Next advances to the next exchange, completing the interaction when the
// current exchange is the last one.
func (h *InteractionHandler) Next(w http.ResponseWriter, r *http.Request) {
	sess := h.manager.Session(identity.MemberFromContext(r.Context()))
	res, err := sess.Advance(r.Context())
	if err != nil {
		transitionError(w, err)
		return
	}
	resultResponse(w, res)
}

// UpdateExchange replaces one exchange by id.
func (h *InteractionHandler) UpdateExchange(w http.ResponseWriter, r *http.Request) {
	var exchange domain.Exchange
	if err := decodeJSON(r, &exchange); err != nil {
		Error(w, http.StatusBadRequest, "invalid exchange payload")
		return
	}
	exchange.ID = chi.URLParam(r, "exchangeID")

	sess := h.manager.Session(identity.MemberFromContext(r.Context()))
	res, err := sess.UpdateExchange(r.Context(), exchange)
	if err != nil {
		transitionError(w, err)
		return
	}
	resultResponse(w, res)
}

// postMessageRequest is the body of PostMessage. An empty exchangeId targets
// the current exchange.
type postMessageRequest struct {
	ExchangeID string `json:"exchangeId,omitempty"`
	Content    string `json:"content"`
}

// PostMessage appends a participant message to an exchange.
func (h *InteractionHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid message payload")
		return
	}
	if req.Content == "" {
		Error(w, http.StatusBadRequest, "message content cannot be empty")
		return
	}

	member := identity.MemberFromContext(r.Context())
	sess := h.manager.Session(member)
	msg := domain.Message{
		Sender:  domain.Agent{ID: member.ID, Name: member.Name, Type: domain.AgentTypeUser},
		Content: req.Content,
	}
	res, err := sess.AppendMessage(r.Context(), req.ExchangeID, msg)
	if err != nil {
		transitionError(w, err)
		return
	}
	resultResponse(w, res)
}

// LeaveCheck exposes the abandon-in-progress guard: it returns the
// confirmation prompt the client must show before navigating away from an
// in-progress interaction.
func (h *InteractionHandler) LeaveCheck(w http.ResponseWriter, r *http.Request) {
	sess := h.manager.Session(identity.MemberFromContext(r.Context()))
	warning, intercept := sess.LeaveWarning()
	JSON(w, http.StatusOK, map[string]interface{}{
		"intercept": intercept,
		"warning":   warning,
	})
}

// Delete removes the member's own persisted record and resets the in-memory
// interaction, so the next access starts fresh.
func (h *InteractionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	member := identity.MemberFromContext(r.Context())
	sess := h.manager.Session(member)
	if err := sess.Reset(r.Context(), ""); err != nil {
		slog.Error("Failed to reset interaction", "member_id", member.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to reset interaction")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
