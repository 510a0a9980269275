// Package chat provides the WebSocket transport for live exchange turns.
package chat

import (
	"github.com/mbertsch/chatlab/internal/domain"
)

// Responder produces the assistant's scripted side of an exchange.
type Responder interface {
	// Opening returns the assistant's message for an exchange that just
	// became current, and whether there is one to send.
	Opening(exchange domain.Exchange) (domain.Message, bool)
}

// ScriptedResponder replays each exchange's template cue as the assistant's
// opening turn. The counterpart is simulated; nothing is generated.
type ScriptedResponder struct{}

// Opening returns the exchange cue as an assistant message. Exchanges with
// no cue, or that already hold messages, get nothing.
func (ScriptedResponder) Opening(exchange domain.Exchange) (domain.Message, bool) {
	if exchange.Cue == "" || len(exchange.Messages) > 0 {
		return domain.Message{}, false
	}
	return domain.Message{
		Sender:  exchange.Assistant,
		Content: exchange.Cue,
	}, true
}
