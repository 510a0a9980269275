// Package interaction implements the interaction lifecycle state machine.
package interaction

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mbertsch/chatlab/internal/appdata"
	"github.com/mbertsch/chatlab/internal/domain"
)

var (
	// ErrAlreadyStarted is returned when Start is called outside NOT_STARTED.
	ErrAlreadyStarted = errors.New("interaction already started")
	// ErrNotStarted is returned when a message is appended before Start.
	ErrNotStarted = errors.New("interaction not started")
	// ErrCompleted is returned when a mutation targets a completed interaction.
	ErrCompleted = errors.New("interaction already completed")
	// ErrExchangeNotFound is returned when an exchange id matches nothing.
	ErrExchangeNotFound = errors.New("exchange not found")
)

// LeaveWarningText is the confirmation prompt surfaced when a participant
// tries to leave an in-progress interaction.
const LeaveWarningText = "Are you sure you want to leave?"

// Session drives one participant's interaction through its lifecycle and
// pushes every mutation through the synchronization engine. All transitions
// are serialized by the session mutex; the first transition triggers the
// rehydrate-or-build initialization exactly once, and transitions requested
// before that are simply deferred behind it.
type Session struct {
	engine      *appdata.Engine
	template    domain.Template
	participant domain.Agent
	logger      *slog.Logger
	now         func() time.Time

	mu          sync.Mutex
	initialized bool
	interaction *domain.Interaction
}

// NewSession creates a session for the given participant. Nothing is loaded
// until the first transition or read.
func NewSession(engine *appdata.Engine, template domain.Template, participant domain.Agent, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		engine:      engine,
		template:    template,
		participant: participant,
		logger:      logger,
		now:         time.Now,
	}
}

// ensureInit rehydrates the interaction from the participant's persisted
// record, or builds a fresh one from the template when none exists. Runs to
// completion at most once; a failed resolve leaves the session uninitialized
// so the next call retries.
func (s *Session) ensureInit(ctx context.Context) error {
	if s.initialized {
		return nil
	}
	if !s.engine.Resolved() {
		if err := s.engine.Resolve(ctx); err != nil {
			return err
		}
	}
	if saved := s.engine.Interaction(); saved != nil {
		s.interaction = saved
	} else {
		s.interaction = domain.BuildInteraction(s.template, s.participant)
	}
	s.initialized = true
	return nil
}

// submit pushes the current interaction to the store. Submit failures never
// roll back local state; the session stays the source of truth and the next
// submit resyncs.
func (s *Session) submit(ctx context.Context) error {
	if err := s.engine.Submit(ctx, s.interaction); err != nil {
		s.logger.Warn("Failed to sync interaction, keeping local state",
			"participant_id", s.participant.ID, "error", err)
		return err
	}
	return nil
}

// Result is a transition outcome: the post-transition snapshot plus any
// store synchronization failure. SyncErr never implies the local transition
// was rolled back.
type Result struct {
	Interaction *domain.Interaction
	SyncErr     error
}

// Interaction returns a snapshot of the participant's interaction,
// initializing the session if needed.
func (s *Session) Interaction(ctx context.Context) (*domain.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx); err != nil {
		return nil, err
	}
	return s.interaction.Clone(), nil
}

// Start transitions NOT_STARTED → STARTED.
func (s *Session) Start(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx); err != nil {
		return Result{}, err
	}
	if s.interaction.Started {
		return Result{}, ErrAlreadyStarted
	}
	now := s.now()
	s.interaction.Started = true
	s.interaction.StartedAt = &now
	s.interaction.UpdatedAt = now

	syncErr := s.submit(ctx)
	return Result{Interaction: s.interaction.Clone(), SyncErr: syncErr}, nil
}

// Advance moves to the next exchange, or completes the interaction when the
// current exchange is the last one. Only reachable once started; advancing
// with no exchanges, or after completion, is a no-op.
func (s *Session) Advance(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx); err != nil {
		return Result{}, err
	}
	if !s.interaction.Started {
		return Result{}, ErrNotStarted
	}
	n := len(s.interaction.Exchanges.ExchangeList)
	if n == 0 || s.interaction.Completed {
		return Result{Interaction: s.interaction.Clone()}, nil
	}

	now := s.now()
	if s.interaction.CurrentExchange == n-1 {
		s.interaction.Completed = true
		s.interaction.CompletedAt = &now
	} else {
		s.interaction.CurrentExchange++
	}
	s.interaction.UpdatedAt = now

	syncErr := s.submit(ctx)
	return Result{Interaction: s.interaction.Clone(), SyncErr: syncErr}, nil
}

// UpdateExchange replaces the exchange with a matching id, leaving order and
// all other exchanges untouched. This is the channel through which dismissed
// flags and new messages enter the aggregate.
func (s *Session) UpdateExchange(ctx context.Context, updated domain.Exchange) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx); err != nil {
		return Result{}, err
	}
	if !s.interaction.Started && updated.Dismissed {
		return Result{}, ErrNotStarted
	}
	target := s.interaction.Find(updated.ID)
	if target == nil {
		return Result{}, ErrExchangeNotFound
	}
	*target = updated
	s.interaction.UpdatedAt = s.now()

	syncErr := s.submit(ctx)
	return Result{Interaction: s.interaction.Clone(), SyncErr: syncErr}, nil
}

// AppendMessage appends a message to the exchange with the given id, or to
// the current exchange when exchangeID is empty. Messages get generated ids
// and timestamps when the caller leaves them unset.
func (s *Session) AppendMessage(ctx context.Context, exchangeID string, msg domain.Message) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx); err != nil {
		return Result{}, err
	}
	if !s.interaction.Started {
		return Result{}, ErrNotStarted
	}
	if s.interaction.Completed {
		return Result{}, ErrCompleted
	}

	var target *domain.Exchange
	if exchangeID == "" {
		target = s.interaction.Current()
		if target == nil {
			return Result{}, ErrExchangeNotFound
		}
	} else if target = s.interaction.Find(exchangeID); target == nil {
		return Result{}, ErrExchangeNotFound
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = s.now()
	}
	target.Messages = append(target.Messages, msg)
	s.interaction.UpdatedAt = s.now()

	syncErr := s.submit(ctx)
	return Result{Interaction: s.interaction.Clone(), SyncErr: syncErr}, nil
}

// DismissCurrent marks the current exchange dismissed (moving its messages
// into the visible history) and advances. Only reachable while started and
// not yet completed.
func (s *Session) DismissCurrent(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if err := s.ensureInit(ctx); err != nil {
		s.mu.Unlock()
		return Result{}, err
	}
	if !s.interaction.Started {
		s.mu.Unlock()
		return Result{}, ErrNotStarted
	}
	if s.interaction.Completed {
		s.mu.Unlock()
		return Result{}, ErrCompleted
	}
	current := s.interaction.Current()
	if current == nil {
		s.mu.Unlock()
		return Result{}, ErrExchangeNotFound
	}
	current.Dismissed = true
	s.interaction.UpdatedAt = s.now()
	syncErr := s.submit(ctx)
	s.mu.Unlock()

	res, err := s.Advance(ctx)
	if err != nil {
		return res, err
	}
	if res.SyncErr == nil {
		res.SyncErr = syncErr
	}
	return res, nil
}

// Reset deletes the participant's persisted record (or the record with the
// given id) and discards the in-memory interaction so the next access builds
// a fresh one from the template.
func (s *Session) Reset(ctx context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Remove(ctx, recordID); err != nil {
		return err
	}
	s.interaction = nil
	s.initialized = false
	return nil
}

// LeaveWarning returns the confirmation prompt to surface before the
// participant leaves, and whether leaving should be intercepted at all. Any
// loaded interaction that is not yet completed warrants a warning; only
// completion releases the participant silently.
func (s *Session) LeaveWarning() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized || s.interaction == nil {
		return "", false
	}
	if !s.interaction.Completed {
		return LeaveWarningText, true
	}
	return "", false
}
