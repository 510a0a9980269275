// Package export implements the admin aggregation view over all
// participants' records and the CSV export format.
package export

import (
	"sort"
	"time"

	"github.com/mbertsch/chatlab/internal/domain"
	"github.com/mbertsch/chatlab/internal/store"
)

// Row is one aggregated table row: a single participant's newest record.
type Row struct {
	RecordID    string              `json:"recordId"`
	MemberID    string              `json:"memberId"`
	MemberName  string              `json:"memberName"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Status      domain.Status       `json:"status"`
	Interaction *domain.Interaction `json:"interaction"`
}

// Aggregate reduces the raw record list to one row per participant: records
// are ordered by creation time descending, then deduplicated by creator id
// keeping the first (newest) occurrence. Duplicate legacy records for the
// same participant therefore collapse to the most recent one. The input is
// never mutated.
func Aggregate(records []*store.AppRecord) []Row {
	ordered := make([]*store.AppRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	seen := make(map[string]bool, len(ordered))
	rows := make([]Row, 0, len(ordered))
	for _, rec := range ordered {
		if seen[rec.CreatorID] {
			continue
		}
		seen[rec.CreatorID] = true

		row := Row{
			RecordID:    rec.ID,
			MemberID:    rec.Member.ID,
			MemberName:  rec.Member.Name,
			Interaction: rec.Data.Interaction,
		}
		if rec.Data.Interaction != nil {
			row.UpdatedAt = rec.Data.Interaction.UpdatedAt
			row.Status = rec.Data.Interaction.Status()
		} else {
			row.Status = domain.StatusNotStarted
		}
		rows = append(rows, row)
	}
	return rows
}

// RowToggle tracks which aggregation row is expanded to show its transcript.
// At most one row is expanded; toggling the expanded row collapses it. This
// is view-local state, never exported.
type RowToggle struct {
	expanded int
}

// NewRowToggle returns a toggle with every row collapsed.
func NewRowToggle() *RowToggle {
	return &RowToggle{expanded: -1}
}

// Toggle expands the given row, collapsing it instead when it is already the
// expanded one.
func (t *RowToggle) Toggle(index int) {
	if t.expanded == index {
		t.expanded = -1
		return
	}
	t.expanded = index
}

// Expanded returns the expanded row index, or false when all are collapsed.
func (t *RowToggle) Expanded() (int, bool) {
	if t.expanded < 0 {
		return 0, false
	}
	return t.expanded, true
}
