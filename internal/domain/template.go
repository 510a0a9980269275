package domain

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Template describes the exercise an interaction is built from. Templates are
// static configuration; a fresh Interaction is minted from one the first time
// a participant with no persisted record touches the state machine.
type Template struct {
	Name                    string             `json:"name"`
	Description             string             `json:"description"`
	ParticipantInstructions string             `json:"participantInstructions,omitempty"`
	ParticipantEndText      string             `json:"participantEndText,omitempty"`
	SendAllToChatbot        bool               `json:"sendAllToChatbot"`
	Exchanges               []ExchangeTemplate `json:"exchanges"`
}

// ExchangeTemplate describes one scripted segment of a Template.
type ExchangeTemplate struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Assistant Agent  `json:"assistant"`
	Cue       string `json:"cue,omitempty"`
	HardLimit bool   `json:"hardLimit"`
}

// DefaultTemplate returns the built-in single-exchange exercise used when no
// template file is configured.
func DefaultTemplate() Template {
	return Template{
		Name:        "Default exercise",
		Description: "default",
		Exchanges: []ExchangeTemplate{
			{
				Name:      "Exchange 1",
				Assistant: Agent{Name: "Assistant"},
			},
		},
	}
}

// LoadTemplate reads a Template from a JSON file.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template file: %w", err)
	}
	var tmpl Template
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return Template{}, fmt.Errorf("parse template file: %w", err)
	}
	return tmpl, nil
}

// BuildInteraction constructs a fresh Interaction from a template, bound to
// the given participant. Every exchange assistant is stamped with the bot
// agent type regardless of what the template says, and exchanges without an
// explicit id get a generated one.
func BuildInteraction(tmpl Template, participant Agent) *Interaction {
	in := &Interaction{
		Name:                    tmpl.Name,
		Description:             tmpl.Description,
		Participant:             participant,
		ParticipantInstructions: tmpl.ParticipantInstructions,
		ParticipantEndText:      tmpl.ParticipantEndText,
		SendAllToChatbot:        tmpl.SendAllToChatbot,
	}
	in.Exchanges.ExchangeList = make([]Exchange, 0, len(tmpl.Exchanges))
	for _, et := range tmpl.Exchanges {
		id := et.ID
		if id == "" {
			id = uuid.NewString()
		}
		assistant := et.Assistant
		assistant.Type = AgentTypeBot
		if assistant.ID == "" {
			assistant.ID = uuid.NewString()
		}
		in.Exchanges.ExchangeList = append(in.Exchanges.ExchangeList, Exchange{
			ID:        id,
			Name:      et.Name,
			Assistant: assistant,
			Cue:       et.Cue,
			HardLimit: et.HardLimit,
		})
	}
	return in
}
