package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/mbertsch/chatlab/internal/domain"
	"github.com/mbertsch/chatlab/internal/identity"
	"github.com/mbertsch/chatlab/internal/interaction"
)

// WebSocketHandler drives a participant's exchange turns over a socket. Every
// accepted event runs one state-machine transition and pushes the fresh
// snapshot back; transitions stay strictly serialized by the session.
type WebSocketHandler struct {
	manager       *interaction.Manager
	registry      *Registry
	responder     Responder
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a chat socket handler.
func NewWebSocketHandler(manager *interaction.Manager, registry *Registry, responder Responder, allowedOrigin string, isDev bool) *WebSocketHandler {
	if responder == nil {
		responder = ScriptedResponder{}
	}
	return &WebSocketHandler{
		manager:       manager,
		registry:      registry,
		responder:     responder,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// clientEvent is one inbound socket message.
type clientEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// serverEvent is one outbound socket message.
type serverEvent struct {
	Type        string              `json:"type"`
	Interaction *domain.Interaction `json:"interaction,omitempty"`
	SyncError   string              `json:"syncError,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	member := identity.MemberFromContext(r.Context())
	slog.Info("Chat socket connection request", "member_id", member.ID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept chat socket", "error", err, "member_id", member.ID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close chat socket", "error", closeErr, "member_id", member.ID)
		}
	}()

	h.registry.Register(member.ID, ws)
	defer h.registry.Unregister(member.ID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := h.manager.Session(member)
	in, err := sess.Interaction(ctx)
	if err != nil {
		slog.Error("Failed to initialize interaction", "error", err, "member_id", member.ID)
		h.send(ctx, ws, serverEvent{Type: "error", Error: "failed to load interaction"})
		return
	}
	h.send(ctx, ws, serverEvent{Type: "interaction", Interaction: in})

	h.readLoop(ctx, ws, sess, member.ID)

	// The socket dropping before completion is the abandon signal the
	// hosting UI warns about.
	if warning, intercept := sess.LeaveWarning(); intercept {
		slog.Info("Participant left an unfinished interaction", "member_id", member.ID, "warning", warning)
	}
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, sess *interaction.Session, memberID string) {
	for {
		_, payload, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Chat socket closed by client", "member_id", memberID)
			} else {
				slog.Warn("Chat socket read error", "error", err, "member_id", memberID)
			}
			return
		}

		var event clientEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			h.send(ctx, ws, serverEvent{Type: "error", Error: "invalid event payload"})
			continue
		}

		h.dispatch(ctx, ws, sess, event)
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, ws *websocket.Conn, sess *interaction.Session, event clientEvent) {
	var res interaction.Result
	var err error

	switch event.Type {
	case "start":
		res, err = sess.Start(ctx)
	case "message":
		if event.Content == "" {
			h.send(ctx, ws, serverEvent{Type: "error", Error: "message content cannot be empty"})
			return
		}
		res, err = sess.AppendMessage(ctx, "", domain.Message{Content: event.Content, Sender: h.participantAgent(ctx, sess)})
	case "dismiss":
		res, err = sess.DismissCurrent(ctx)
	default:
		h.send(ctx, ws, serverEvent{Type: "error", Error: "unknown event type"})
		return
	}

	if err != nil {
		h.send(ctx, ws, serverEvent{Type: "error", Error: err.Error()})
		return
	}

	res = h.assistantTurn(ctx, sess, res)

	out := serverEvent{Type: "interaction", Interaction: res.Interaction}
	if res.SyncErr != nil {
		out.SyncError = res.SyncErr.Error()
	}
	h.send(ctx, ws, out)
}

// assistantTurn appends the scripted opening when the current exchange has
// one pending.
func (h *WebSocketHandler) assistantTurn(ctx context.Context, sess *interaction.Session, res interaction.Result) interaction.Result {
	in := res.Interaction
	if in == nil || !in.Started || in.Completed {
		return res
	}
	current := in.Current()
	if current == nil {
		return res
	}
	opening, ok := h.responder.Opening(*current)
	if !ok {
		return res
	}
	next, err := sess.AppendMessage(ctx, current.ID, opening)
	if err != nil {
		slog.Warn("Failed to append assistant opening", "exchange_id", current.ID, "error", err)
		return res
	}
	if next.SyncErr == nil {
		next.SyncErr = res.SyncErr
	}
	return next
}

func (h *WebSocketHandler) participantAgent(ctx context.Context, sess *interaction.Session) domain.Agent {
	if in, err := sess.Interaction(ctx); err == nil && in != nil {
		return in.Participant
	}
	return domain.Agent{Type: domain.AgentTypeUser}
}

func (h *WebSocketHandler) send(ctx context.Context, ws *websocket.Conn, event serverEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal chat event", "error", err)
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
		slog.Debug("Chat socket write error", "error", err)
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("Chat socket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
