package appdata

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mbertsch/chatlab/internal/domain"
)

// JournalOp names a record mutation.
type JournalOp string

const (
	OpCreate JournalOp = "create"
	OpUpdate JournalOp = "update"
	OpDelete JournalOp = "delete"
)

// JournalEvent is one NDJSON line in the sync journal.
type JournalEvent struct {
	Timestamp time.Time     `json:"ts"`
	MemberID  string        `json:"member_id"`
	RecordID  string        `json:"record_id"`
	Op        JournalOp     `json:"op"`
	Status    domain.Status `json:"status,omitempty"`
}

// JournalConfig controls the sync journal.
type JournalConfig struct {
	Enabled   bool
	Path      string
	QueueSize int
}

// Journal appends record mutations to an NDJSON file from a background
// worker, so journaling never blocks a submit. A nil Journal is valid and
// drops all events.
type Journal struct {
	ch     chan JournalEvent
	done   chan struct{}
	file   *os.File
	logger *slog.Logger
}

// NewJournal opens the journal file and starts the writer goroutine.
// Returns nil (disabled) when cfg.Enabled is false.
func NewJournal(cfg JournalConfig, logger *slog.Logger) (*Journal, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	file, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	j := &Journal{
		ch:     make(chan JournalEvent, queueSize),
		done:   make(chan struct{}),
		file:   file,
		logger: logger,
	}
	go j.run()
	return j, nil
}

// Log enqueues an event. Events are dropped when the queue is full rather
// than blocking the caller.
func (j *Journal) Log(event JournalEvent) {
	if j == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case j.ch <- event:
	default:
		j.logger.Warn("Sync journal queue full, dropping event", "record_id", event.RecordID, "op", event.Op)
	}
}

// Close drains pending events and closes the journal file.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	close(j.ch)
	<-j.done
	return j.file.Close()
}

func (j *Journal) run() {
	defer close(j.done)
	for event := range j.ch {
		line, err := json.Marshal(event)
		if err != nil {
			j.logger.Error("Failed to marshal journal event", "error", err)
			continue
		}
		if _, err := j.file.Write(append(line, '\n')); err != nil {
			j.logger.Error("Failed to write journal event", "error", err)
		}
	}
}
