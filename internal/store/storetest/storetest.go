// Package storetest provides an in-memory RecordStore for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mbertsch/chatlab/internal/store"
)

// MemStore is an in-memory store.RecordStore that counts calls and can be
// told to fail, so tests can assert the create-once/then-update discipline.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*store.AppRecord
	members map[string]*store.Member
	seq     int
	clock   time.Time

	CreateCalls int
	UpdateCalls int
	DeleteCalls int
	ListCalls   int

	FailList   error
	FailCreate error
	FailUpdate error
}

// New creates an empty MemStore.
func New() *MemStore {
	return &MemStore{
		records: make(map[string]*store.AppRecord),
		members: make(map[string]*store.Member),
		clock:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp, so creation order is always
// distinguishable.
func (m *MemStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// Seed inserts a record directly, bypassing call counters.
func (m *MemStore) Seed(rec *store.AppRecord) *store.AppRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		m.seq++
		rec.ID = fmt.Sprintf("rec-%d", m.seq)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.tick()
	}
	m.records[rec.ID] = rec
	return rec
}

// ListRecords returns all records of the given type, newest first.
func (m *MemStore) ListRecords(_ context.Context, recordType store.RecordType) ([]*store.AppRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.FailList != nil {
		return nil, m.FailList
	}

	var out []*store.AppRecord
	for _, rec := range m.records {
		if rec.Type == recordType {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CreateRecord stores a new record with a generated id.
func (m *MemStore) CreateRecord(_ context.Context, rec *store.AppRecord) (*store.AppRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.FailCreate != nil {
		return nil, m.FailCreate
	}

	m.seq++
	created := *rec
	created.ID = fmt.Sprintf("rec-%d", m.seq)
	created.CreatedAt = m.tick()
	created.UpdatedAt = created.CreatedAt
	m.records[created.ID] = &created

	cp := created
	return &cp, nil
}

// UpdateRecord replaces a record's payload.
func (m *MemStore) UpdateRecord(_ context.Context, id string, data store.RecordData) (*store.AppRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.FailUpdate != nil {
		return nil, m.FailUpdate
	}

	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	rec.Data = data
	rec.UpdatedAt = m.tick()

	cp := *rec
	return &cp, nil
}

// DeleteRecord removes a record; unknown ids are ignored.
func (m *MemStore) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	delete(m.records, id)
	return nil
}

// GetMember retrieves a member, or nil if unknown.
func (m *MemStore) GetMember(_ context.Context, memberID string) (*store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[memberID]
	if !ok {
		return nil, nil
	}
	cp := *member
	return &cp, nil
}

// UpsertMember creates or refreshes a member row.
func (m *MemStore) UpsertMember(_ context.Context, member *store.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *member
	m.members[member.ID] = &cp
	return nil
}

// ListMembers returns all known members.
func (m *MemStore) ListMembers(_ context.Context) ([]*store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Member
	for _, member := range m.members {
		cp := *member
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Ping always succeeds.
func (m *MemStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemStore) Close() error { return nil }
