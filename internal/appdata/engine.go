// Package appdata implements the synchronization engine that keeps one
// in-memory interaction consistent with its single persisted record.
package appdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mbertsch/chatlab/internal/domain"
	"github.com/mbertsch/chatlab/internal/store"
)

// ErrNotResolved is returned when an operation needs the record list before
// the initial store query has completed. Callers must resolve first and
// retry; the operation is deferred, never dropped.
var ErrNotResolved = errors.New("record list not yet resolved")

// Engine owns the create-once/then-update discipline between the active
// participant's interaction and its persisted record. The tracked record id
// is explicit state: empty means no record exists yet and the next Submit
// creates one.
type Engine struct {
	store   store.RecordStore
	member  store.Member
	isAdmin bool
	journal *Journal

	mu       sync.Mutex
	resolved bool
	recordID string
	record   *store.AppRecord
}

// NewEngine creates an engine for the given member. isAdmin controls whether
// the cross-participant record list is visible through All.
func NewEngine(recordStore store.RecordStore, member store.Member, isAdmin bool, journal *Journal) *Engine {
	return &Engine{
		store:   recordStore,
		member:  member,
		isAdmin: isAdmin,
		journal: journal,
	}
}

// Resolve fetches the record list and selects the current member's record:
// newest creation time wins, which tolerates duplicate legacy records for
// the same participant. Safe to call more than once.
func (e *Engine) Resolve(ctx context.Context) error {
	records, err := e.store.ListRecords(ctx, store.RecordTypeUserInteraction)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	e.record = nil
	e.recordID = ""
	for _, rec := range records {
		if rec.Member.ID == e.member.ID {
			e.record = rec
			e.recordID = rec.ID
			break
		}
	}
	e.resolved = true
	return nil
}

// Resolved reports whether the initial record list query has completed.
func (e *Engine) Resolved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolved
}

// Interaction returns the member's rehydrated interaction payload, or nil if
// no record has been resolved for them.
func (e *Engine) Interaction() *domain.Interaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record == nil {
		return nil
	}
	return e.record.Data.Interaction
}

// RecordID returns the tracked record id, or "" when no record exists yet.
func (e *Engine) RecordID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordID
}

// Submit pushes the interaction to the store. The first submit with no
// tracked record creates one; every later submit patches the same id. Store
// failures are returned to the caller but never change local tracking other
// than a successful create capturing the new id.
func (e *Engine) Submit(ctx context.Context, interaction *domain.Interaction) error {
	e.mu.Lock()
	if !e.resolved {
		e.mu.Unlock()
		return ErrNotResolved
	}
	recordID := e.recordID
	e.mu.Unlock()

	data := store.RecordData{Interaction: interaction}

	if recordID == "" {
		rec := &store.AppRecord{
			Type:       store.RecordTypeUserInteraction,
			Member:     e.member,
			CreatorID:  e.member.ID,
			Visibility: store.VisibilityMember,
			Data:       data,
		}
		created, err := e.store.CreateRecord(ctx, rec)
		if err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		e.mu.Lock()
		e.record = created
		e.recordID = created.ID
		e.mu.Unlock()
		e.journal.Log(JournalEvent{MemberID: e.member.ID, RecordID: created.ID, Op: OpCreate, Status: interaction.Status()})
		return nil
	}

	updated, err := e.store.UpdateRecord(ctx, recordID, data)
	if err != nil {
		return fmt.Errorf("update record %s: %w", recordID, err)
	}
	e.mu.Lock()
	e.record = updated
	e.mu.Unlock()
	e.journal.Log(JournalEvent{MemberID: e.member.ID, RecordID: recordID, Op: OpUpdate, Status: interaction.Status()})
	return nil
}

// Remove deletes the record with the given id, or the tracked record when id
// is empty. With no id and no tracked record this is a local-only reset: no
// store call is made. Removing the tracked record clears the engine so the
// next Submit recreates from scratch.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	if id == "" {
		id = e.recordID
	}
	tracked := id != "" && id == e.recordID
	e.mu.Unlock()

	if id != "" {
		if err := e.store.DeleteRecord(ctx, id); err != nil {
			return fmt.Errorf("delete record %s: %w", id, err)
		}
		e.journal.Log(JournalEvent{MemberID: e.member.ID, RecordID: id, Op: OpDelete})
	}

	e.mu.Lock()
	if tracked || id == "" {
		e.record = nil
		e.recordID = ""
	}
	e.mu.Unlock()
	return nil
}

// All returns every participant's records, newest first. Non-admin callers
// always get nil regardless of what the store holds.
func (e *Engine) All(ctx context.Context) ([]*store.AppRecord, error) {
	if !e.isAdmin {
		return nil, nil
	}
	records, err := e.store.ListRecords(ctx, store.RecordTypeUserInteraction)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}
