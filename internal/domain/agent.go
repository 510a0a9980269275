// Package domain contains core domain types for the chatlab application.
package domain

import (
	"time"
)

// AgentType identifies the role of an actor in a conversation.
type AgentType string

const (
	// AgentTypeUser is a human participant.
	AgentTypeUser AgentType = "user"
	// AgentTypeBot is the scripted assistant.
	AgentTypeBot AgentType = "bot"
)

// Agent represents one actor in a conversation. Agents are immutable once
// bound to an exchange.
type Agent struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type AgentType `json:"type"`
}

// Message is a single utterance within an exchange.
type Message struct {
	ID      string    `json:"id"`
	Sender  Agent     `json:"sender"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sentAt"`
}
