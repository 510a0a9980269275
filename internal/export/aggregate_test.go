package export

import (
	"testing"
	"time"

	"github.com/mbertsch/chatlab/internal/domain"
	"github.com/mbertsch/chatlab/internal/store"
)

func record(id, creatorID string, createdAt time.Time, in *domain.Interaction) *store.AppRecord {
	return &store.AppRecord{
		ID:        id,
		Type:      store.RecordTypeUserInteraction,
		Member:    store.Member{ID: creatorID, Name: "Member " + creatorID},
		CreatorID: creatorID,
		CreatedAt: createdAt,
		Data:      store.RecordData{Interaction: in},
	}
}

func TestAggregateDeduplicatesByCreatorKeepingNewest(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	stale := &domain.Interaction{Name: "stale"}
	fresh := &domain.Interaction{Name: "fresh", Started: true}
	other := &domain.Interaction{Name: "other", Started: true, Completed: true}

	rows := Aggregate([]*store.AppRecord{
		record("rec-1", "member-1", base, stale),
		record("rec-3", "member-2", base.Add(2*time.Minute), other),
		record("rec-2", "member-1", base.Add(time.Minute), fresh),
	})

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows after dedupe, got %d", len(rows))
	}
	// Newest records first.
	if rows[0].RecordID != "rec-3" {
		t.Errorf("Expected rec-3 first, got %s", rows[0].RecordID)
	}
	if rows[1].RecordID != "rec-2" {
		t.Errorf("Expected member-1's newest record rec-2, got %s", rows[1].RecordID)
	}
	if rows[1].Interaction.Name != "fresh" {
		t.Errorf("Expected newest interaction kept, got %q", rows[1].Interaction.Name)
	}
	if rows[0].Status != domain.StatusComplete {
		t.Errorf("Expected complete status, got %q", rows[0].Status)
	}
	if rows[1].Status != domain.StatusIncomplete {
		t.Errorf("Expected incomplete status, got %q", rows[1].Status)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	t.Parallel()

	if rows := Aggregate(nil); len(rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(rows))
	}
}

func TestAggregateNilInteraction(t *testing.T) {
	t.Parallel()

	rows := Aggregate([]*store.AppRecord{
		record("rec-1", "member-1", time.Now(), nil),
	})
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].Status != domain.StatusNotStarted {
		t.Errorf("Expected not_started for empty payload, got %q", rows[0].Status)
	}
}

func TestRowToggle(t *testing.T) {
	t.Parallel()

	toggle := NewRowToggle()
	if _, ok := toggle.Expanded(); ok {
		t.Error("New toggle must start collapsed")
	}

	toggle.Toggle(2)
	if idx, ok := toggle.Expanded(); !ok || idx != 2 {
		t.Errorf("Expected row 2 expanded, got %d/%v", idx, ok)
	}

	// Expanding another row collapses the first.
	toggle.Toggle(4)
	if idx, ok := toggle.Expanded(); !ok || idx != 4 {
		t.Errorf("Expected row 4 expanded, got %d/%v", idx, ok)
	}

	// Toggling the expanded row collapses it.
	toggle.Toggle(4)
	if _, ok := toggle.Expanded(); ok {
		t.Error("Expected all rows collapsed after second toggle")
	}
}
