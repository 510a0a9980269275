package interaction

import (
	"log/slog"
	"sync"

	"github.com/mbertsch/chatlab/internal/appdata"
	"github.com/mbertsch/chatlab/internal/domain"
	"github.com/mbertsch/chatlab/internal/store"
)

// Manager hands out one Session per member. Sessions live for the member's
// visit; a session owns its in-memory interaction exclusively.
type Manager struct {
	store    store.RecordStore
	template domain.Template
	journal  *appdata.Journal
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(recordStore store.RecordStore, template domain.Template, journal *appdata.Journal, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    recordStore,
		template: template,
		journal:  journal,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Session returns the member's session, creating it on first use. Participant
// sessions never get admin visibility; the cross-participant list is only
// reachable through AdminEngine.
func (m *Manager) Session(member store.Member) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[member.ID]; ok {
		return sess
	}

	participant := domain.Agent{ID: member.ID, Name: member.Name, Type: domain.AgentTypeUser}
	engine := appdata.NewEngine(m.store, member, false, m.journal)
	sess := NewSession(engine, m.template, participant, m.logger)
	m.sessions[member.ID] = sess
	m.logger.Info("Interaction session created", "member_id", member.ID)
	return sess
}

// Drop removes a member's session, discarding its in-memory state.
func (m *Manager) Drop(memberID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, memberID)
}

// AdminEngine returns a sync engine with elevated visibility for the given
// member. Used by the aggregation view; it never mutates records it does not
// own.
func (m *Manager) AdminEngine(member store.Member) *appdata.Engine {
	return appdata.NewEngine(m.store, member, true, m.journal)
}
