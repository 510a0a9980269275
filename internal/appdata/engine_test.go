package appdata

import (
	"context"
	"errors"
	"testing"

	"github.com/mbertsch/chatlab/internal/domain"
	"github.com/mbertsch/chatlab/internal/store"
	"github.com/mbertsch/chatlab/internal/store/storetest"
)

var member = store.Member{ID: "member-1", Name: "Ada"}

func newInteraction(name string) *domain.Interaction {
	return &domain.Interaction{Name: name, Participant: domain.Agent{ID: member.ID, Name: member.Name, Type: domain.AgentTypeUser}}
}

func TestSubmitBeforeResolveIsDeferred(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	engine := NewEngine(mem, member, false, nil)

	err := engine.Submit(context.Background(), newInteraction("ex"))
	if !errors.Is(err, ErrNotResolved) {
		t.Fatalf("Expected ErrNotResolved, got %v", err)
	}
	if mem.CreateCalls != 0 || mem.UpdateCalls != 0 {
		t.Errorf("No store writes expected before resolve, got %d creates and %d updates", mem.CreateCalls, mem.UpdateCalls)
	}
}

func TestFirstSubmitCreatesThenUpdates(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	engine := NewEngine(mem, member, false, nil)
	ctx := context.Background()

	if err := engine.Resolve(ctx); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if err := engine.Submit(ctx, newInteraction("ex")); err != nil {
		t.Fatalf("First submit failed: %v", err)
	}
	if mem.CreateCalls != 1 || mem.UpdateCalls != 0 {
		t.Fatalf("Expected exactly 1 create and 0 updates, got %d and %d", mem.CreateCalls, mem.UpdateCalls)
	}

	recordID := engine.RecordID()
	if recordID == "" {
		t.Fatal("Expected tracked record id after create")
	}

	for i := 0; i < 3; i++ {
		if err := engine.Submit(ctx, newInteraction("ex")); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}
	if mem.CreateCalls != 1 {
		t.Errorf("Expected no second create, got %d creates", mem.CreateCalls)
	}
	if mem.UpdateCalls != 3 {
		t.Errorf("Expected 3 updates, got %d", mem.UpdateCalls)
	}
	if engine.RecordID() != recordID {
		t.Errorf("Updates must target the same record id: %q vs %q", engine.RecordID(), recordID)
	}
}

func TestResolveRehydratesNewestOwnRecord(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	mem.Seed(&store.AppRecord{
		Type:      store.RecordTypeUserInteraction,
		Member:    member,
		CreatorID: member.ID,
		Data:      store.RecordData{Interaction: newInteraction("stale")},
	})
	newest := mem.Seed(&store.AppRecord{
		Type:      store.RecordTypeUserInteraction,
		Member:    member,
		CreatorID: member.ID,
		Data:      store.RecordData{Interaction: newInteraction("fresh")},
	})
	mem.Seed(&store.AppRecord{
		Type:      store.RecordTypeUserInteraction,
		Member:    store.Member{ID: "member-2", Name: "Bob"},
		CreatorID: "member-2",
		Data:      store.RecordData{Interaction: newInteraction("other")},
	})

	engine := NewEngine(mem, member, false, nil)
	if err := engine.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if engine.RecordID() != newest.ID {
		t.Errorf("Expected newest record %q, got %q", newest.ID, engine.RecordID())
	}
	in := engine.Interaction()
	if in == nil || in.Name != "fresh" {
		t.Errorf("Expected rehydrated interaction 'fresh', got %+v", in)
	}

	// A resolved record means the next submit patches, never re-creates.
	if err := engine.Submit(context.Background(), newInteraction("fresh")); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if mem.CreateCalls != 0 {
		t.Errorf("Expected 0 creates after rehydration, got %d", mem.CreateCalls)
	}
	if mem.UpdateCalls != 1 {
		t.Errorf("Expected 1 update, got %d", mem.UpdateCalls)
	}
}

func TestRemoveResetsCreateDiscipline(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	engine := NewEngine(mem, member, false, nil)
	ctx := context.Background()

	if err := engine.Resolve(ctx); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := engine.Submit(ctx, newInteraction("ex")); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	first := engine.RecordID()

	if err := engine.Remove(ctx, ""); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if mem.DeleteCalls != 1 {
		t.Errorf("Expected 1 delete call, got %d", mem.DeleteCalls)
	}
	if engine.RecordID() != "" {
		t.Error("Expected tracked record cleared after remove")
	}

	if err := engine.Submit(ctx, newInteraction("ex")); err != nil {
		t.Fatalf("Submit after remove failed: %v", err)
	}
	if mem.CreateCalls != 2 {
		t.Errorf("Expected a fresh create after remove, got %d creates", mem.CreateCalls)
	}
	if engine.RecordID() == first {
		t.Error("Expected a new record id after remove")
	}
}

func TestRemoveWithoutRecordIsLocalOnly(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	engine := NewEngine(mem, member, false, nil)
	if err := engine.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if err := engine.Remove(context.Background(), ""); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if mem.DeleteCalls != 0 {
		t.Errorf("Expected local-only reset with no delete call, got %d", mem.DeleteCalls)
	}
}

func TestRemoveExplicitID(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	rec := mem.Seed(&store.AppRecord{
		Type:      store.RecordTypeUserInteraction,
		Member:    store.Member{ID: "member-2"},
		CreatorID: "member-2",
	})

	engine := NewEngine(mem, member, false, nil)
	if err := engine.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := engine.Remove(context.Background(), rec.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if mem.DeleteCalls != 1 {
		t.Errorf("Expected 1 delete call, got %d", mem.DeleteCalls)
	}
}

func TestAllIsAdminGated(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	mem.Seed(&store.AppRecord{
		Type:      store.RecordTypeUserInteraction,
		Member:    member,
		CreatorID: member.ID,
		Data:      store.RecordData{Interaction: newInteraction("ex")},
	})

	memberEngine := NewEngine(mem, member, false, nil)
	records, err := memberEngine.All(context.Background())
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if records != nil {
		t.Errorf("Member-level engine must never expose the full list, got %d records", len(records))
	}

	adminEngine := NewEngine(mem, member, true, nil)
	records, err = adminEngine.All(context.Background())
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record for admin, got %d", len(records))
	}
}

func TestSubmitFailurePropagatesAndRetries(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	engine := NewEngine(mem, member, false, nil)
	ctx := context.Background()

	if err := engine.Resolve(ctx); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	mem.FailCreate = errors.New("store unavailable")
	if err := engine.Submit(ctx, newInteraction("ex")); err == nil {
		t.Fatal("Expected create failure to propagate")
	}
	if engine.RecordID() != "" {
		t.Error("Failed create must not track a record id")
	}

	// The next submit resyncs from scratch.
	mem.FailCreate = nil
	if err := engine.Submit(ctx, newInteraction("ex")); err != nil {
		t.Fatalf("Submit after recovery failed: %v", err)
	}
	if engine.RecordID() == "" {
		t.Error("Expected tracked record id after recovery")
	}
}
