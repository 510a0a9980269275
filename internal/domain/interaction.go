package domain

import (
	"time"
)

// Exchange is one scripted conversational segment within an interaction.
// Messages only ever grow; dismissed flips from false to true exactly once,
// after which the exchange's messages become part of the visible history.
type Exchange struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Assistant Agent     `json:"assistant"`
	Messages  []Message `json:"messages"`
	Cue       string    `json:"cue,omitempty"`
	Dismissed bool      `json:"dismissed"`
	HardLimit bool      `json:"hardLimit"`
}

// ExchangeList wraps the ordered exchange sequence. The indirection mirrors
// the persisted payload shape.
type ExchangeList struct {
	ExchangeList []Exchange `json:"exchangeList"`
}

// Status describes how far a participant has progressed.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
)

// Interaction is one participant's end-to-end run through the scripted
// exercise. It is the aggregate root persisted as a single record.
type Interaction struct {
	Name                    string       `json:"name"`
	Description             string       `json:"description"`
	Participant             Agent        `json:"participant"`
	Exchanges               ExchangeList `json:"exchanges"`
	CurrentExchange         int          `json:"currentExchange"`
	Started                 bool         `json:"started"`
	StartedAt               *time.Time   `json:"startedAt,omitempty"`
	Completed               bool         `json:"completed"`
	CompletedAt             *time.Time   `json:"completedAt,omitempty"`
	UpdatedAt               time.Time    `json:"updatedAt"`
	ParticipantInstructions string       `json:"participantInstructions,omitempty"`
	ParticipantEndText      string       `json:"participantEndText,omitempty"`
	SendAllToChatbot        bool         `json:"sendAllToChatbot"`
}

// Status derives the progress status from the started/completed flags.
// It is computed at render/export time, never stored.
func (i *Interaction) Status() Status {
	switch {
	case i.Completed:
		return StatusComplete
	case i.Started:
		return StatusIncomplete
	default:
		return StatusNotStarted
	}
}

// Current returns a pointer to the current exchange, or nil if the
// interaction has no exchanges.
func (i *Interaction) Current() *Exchange {
	list := i.Exchanges.ExchangeList
	if i.CurrentExchange < 0 || i.CurrentExchange >= len(list) {
		return nil
	}
	return &list[i.CurrentExchange]
}

// Find returns a pointer to the exchange with the given id, or nil.
func (i *Interaction) Find(exchangeID string) *Exchange {
	for idx := range i.Exchanges.ExchangeList {
		if i.Exchanges.ExchangeList[idx].ID == exchangeID {
			return &i.Exchanges.ExchangeList[idx]
		}
	}
	return nil
}

// Clone returns a deep copy of the interaction. Callers hand clones across
// goroutine boundaries so the session's copy stays exclusively owned.
func (i *Interaction) Clone() *Interaction {
	if i == nil {
		return nil
	}
	out := *i
	out.Exchanges.ExchangeList = make([]Exchange, len(i.Exchanges.ExchangeList))
	copy(out.Exchanges.ExchangeList, i.Exchanges.ExchangeList)
	for idx := range out.Exchanges.ExchangeList {
		src := i.Exchanges.ExchangeList[idx].Messages
		if src == nil {
			continue
		}
		msgs := make([]Message, len(src))
		copy(msgs, src)
		out.Exchanges.ExchangeList[idx].Messages = msgs
	}
	if i.StartedAt != nil {
		t := *i.StartedAt
		out.StartedAt = &t
	}
	if i.CompletedAt != nil {
		t := *i.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// PastMessages returns the messages of all dismissed exchanges, flattened in
// exchange order. These form the visible conversation history.
func (i *Interaction) PastMessages() []Message {
	var past []Message
	for _, ex := range i.Exchanges.ExchangeList {
		if ex.Dismissed {
			past = append(past, ex.Messages...)
		}
	}
	return past
}

// MessageCount returns the total number of messages across all exchanges.
func (i *Interaction) MessageCount() int {
	n := 0
	for _, ex := range i.Exchanges.ExchangeList {
		n += len(ex.Messages)
	}
	return n
}
