package chat

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mbertsch/chatlab/internal/domain"
)

func TestScriptedResponderOpening(t *testing.T) {
	t.Parallel()

	assistant := domain.Agent{ID: "bot-1", Name: "Tutor", Type: domain.AgentTypeBot}

	msg, ok := ScriptedResponder{}.Opening(domain.Exchange{
		ID:        "ex-1",
		Assistant: assistant,
		Cue:       "Tell me about your day.",
	})
	if !ok {
		t.Fatal("Expected an opening for a cued empty exchange")
	}
	if msg.Sender != assistant {
		t.Errorf("Expected assistant sender, got %+v", msg.Sender)
	}
	if msg.Content != "Tell me about your day." {
		t.Errorf("Expected cue as content, got %q", msg.Content)
	}
}

func TestScriptedResponderNoCue(t *testing.T) {
	t.Parallel()

	if _, ok := (ScriptedResponder{}).Opening(domain.Exchange{ID: "ex-1"}); ok {
		t.Error("Expected no opening without a cue")
	}
}

func TestScriptedResponderAlreadyOpened(t *testing.T) {
	t.Parallel()

	exchange := domain.Exchange{
		ID:  "ex-1",
		Cue: "Hello!",
		Messages: []domain.Message{
			{ID: "msg-1", Content: "Hello!", SentAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		},
	}
	if _, ok := (ScriptedResponder{}).Opening(exchange); ok {
		t.Error("Expected no second opening once the exchange has messages")
	}
}

func TestCheckOrigin(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		allowedOrigin string
		isDev         bool
		origin        string
		want          bool
	}{
		{"dev allows anything", "https://chatlab.example.org", true, "https://evil.example.org", true},
		{"matching origin", "https://chatlab.example.org", false, "https://chatlab.example.org", true},
		{"mismatched origin", "https://chatlab.example.org", false, "https://evil.example.org", false},
		{"no origin header", "https://chatlab.example.org", false, "", true},
		{"wildcard", "*", false, "https://anywhere.example.org", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := NewWebSocketHandler(nil, NewRegistry(), nil, tc.allowedOrigin, tc.isDev)
			r := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			if got := h.checkOrigin(r); got != tc.want {
				t.Errorf("checkOrigin = %v, want %v", got, tc.want)
			}
		})
	}
}
