// Package store provides record persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mbertsch/chatlab/internal/domain"
)

// ErrRecordNotFound is returned when a record id does not exist.
var ErrRecordNotFound = errors.New("record not found")

// RecordType tags the kind of a persisted record.
type RecordType string

// RecordTypeUserInteraction tags records holding one participant's
// interaction payload.
const RecordTypeUserInteraction RecordType = "user-interaction"

// Visibility scopes who may read a record.
type Visibility string

// VisibilityMember restricts a record to its owning member (admins can still
// list across all members).
const VisibilityMember Visibility = "member"

// Member is a known participant.
type Member struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// RecordData is the payload envelope of an app record.
type RecordData struct {
	Interaction *domain.Interaction `json:"interaction"`
}

// AppRecord is the persisted representation of one participant's interaction.
// ID and CreatedAt are assigned by the store on creation.
type AppRecord struct {
	ID         string     `json:"id"`
	Type       RecordType `json:"type"`
	Member     Member     `json:"member"`
	CreatorID  string     `json:"creatorId"`
	Visibility Visibility `json:"visibility"`
	Data       RecordData `json:"data"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// RecordStore defines the interface the synchronization engine and the
// aggregation view depend on. Updates are last-write-wins; the store must
// tolerate rapid repeated updates to the same id.
type RecordStore interface {
	// ListRecords returns all records of the given type, newest first.
	ListRecords(ctx context.Context, recordType RecordType) ([]*AppRecord, error)

	// CreateRecord stores a new record, assigning its id and creation time.
	CreateRecord(ctx context.Context, rec *AppRecord) (*AppRecord, error)

	// UpdateRecord replaces the payload of an existing record.
	UpdateRecord(ctx context.Context, id string, data RecordData) (*AppRecord, error)

	// DeleteRecord removes a record. Deleting an unknown id is not an error.
	DeleteRecord(ctx context.Context, id string) error

	// GetMember retrieves a member by id, or nil if unknown.
	GetMember(ctx context.Context, memberID string) (*Member, error)

	// UpsertMember creates or refreshes a member row.
	UpsertMember(ctx context.Context, member *Member) error

	// ListMembers returns all known members.
	ListMembers(ctx context.Context) ([]*Member, error)

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}
