package appdata

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestJournalWritesNDJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sync.ndjson")
	journal, err := NewJournal(JournalConfig{Enabled: true, Path: path, QueueSize: 16}, slog.Default())
	if err != nil {
		t.Fatalf("NewJournal failed: %v", err)
	}

	journal.Log(JournalEvent{MemberID: "member-1", RecordID: "rec-1", Op: OpCreate})
	journal.Log(JournalEvent{MemberID: "member-1", RecordID: "rec-1", Op: OpUpdate})

	if err := journal.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read journal: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 journal lines, got %d", len(lines))
	}

	var first JournalEvent
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Failed to unmarshal journal line: %v", err)
	}
	if first.Op != OpCreate || first.RecordID != "rec-1" {
		t.Errorf("Unexpected first event: %+v", first)
	}
	if first.Timestamp.IsZero() {
		t.Error("Expected timestamp to be stamped")
	}
}

func TestJournalDisabledIsNil(t *testing.T) {
	t.Parallel()

	journal, err := NewJournal(JournalConfig{Enabled: false}, slog.Default())
	if err != nil {
		t.Fatalf("NewJournal failed: %v", err)
	}
	if journal != nil {
		t.Fatal("Expected nil journal when disabled")
	}

	// Nil receivers must be safe.
	journal.Log(JournalEvent{Op: OpDelete, Timestamp: time.Now()})
	if err := journal.Close(); err != nil {
		t.Errorf("Close on nil journal failed: %v", err)
	}
}
