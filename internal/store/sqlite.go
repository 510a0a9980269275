package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mbertsch/chatlab/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements RecordStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed record store.
func NewSQLite(dbPath string) (RecordStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS members (
		member_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		last_seen_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS app_records (
		record_id TEXT PRIMARY KEY,
		record_type TEXT NOT NULL,
		member_id TEXT NOT NULL,
		creator_id TEXT NOT NULL,
		visibility TEXT NOT NULL,
		data_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_type_created ON app_records(record_type, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_records_member ON app_records(member_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListRecords returns all records of the given type, newest first.
func (s *SQLiteStore) ListRecords(ctx context.Context, recordType RecordType) ([]*AppRecord, error) {
	query := `
		SELECT r.record_id, r.record_type, r.member_id, COALESCE(m.name, ''),
		       r.creator_id, r.visibility, r.data_json, r.created_at, r.updated_at
		FROM app_records r
		LEFT JOIN members m ON m.member_id = r.member_id
		WHERE r.record_type = ?
		ORDER BY r.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, string(recordType))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*AppRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// CreateRecord stores a new record, assigning its id and creation time.
func (s *SQLiteStore) CreateRecord(ctx context.Context, rec *AppRecord) (*AppRecord, error) {
	created := *rec
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt

	payload, err := json.Marshal(created.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal record data: %w", err)
	}

	query := `
		INSERT INTO app_records (record_id, record_type, member_id, creator_id, visibility, data_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		created.ID, string(created.Type), created.Member.ID, created.CreatorID,
		string(created.Visibility), string(payload),
		created.CreatedAt.UnixNano(), created.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return &created, nil
}

// UpdateRecord replaces the payload of an existing record. Last write wins.
func (s *SQLiteStore) UpdateRecord(ctx context.Context, id string, data RecordData) (*AppRecord, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal record data: %w", err)
	}

	now := time.Now()
	query := `UPDATE app_records SET data_json = ?, updated_at = ? WHERE record_id = ?`
	res, err := s.execWithRetry(ctx, query, string(payload), now.UnixNano(), id)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update record rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.getRecord(ctx, id)
}

// DeleteRecord removes a record. Deleting an unknown id is not an error.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_records WHERE record_id = ?`, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getRecord(ctx context.Context, id string) (*AppRecord, error) {
	query := `
		SELECT r.record_id, r.record_type, r.member_id, COALESCE(m.name, ''),
		       r.creator_id, r.visibility, r.data_json, r.created_at, r.updated_at
		FROM app_records r
		LEFT JOIN members m ON m.member_id = r.member_id
		WHERE r.record_id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// execWithRetry retries once after a SQLite concurrency error. Submits are
// fire-and-forget upstream, so back-to-back writes against the same record
// occasionally collide.
func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil && shared.IsSQLiteConflictError(err) {
		time.Sleep(50 * time.Millisecond)
		res, err = s.db.ExecContext(ctx, query, args...)
	}
	return res, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*AppRecord, error) {
	var rec AppRecord
	var recordType, visibility, payload string
	var createdAt, updatedAt int64

	err := row.Scan(
		&rec.ID, &recordType, &rec.Member.ID, &rec.Member.Name,
		&rec.CreatorID, &visibility, &payload, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan record row: %w", err)
	}

	rec.Type = RecordType(recordType)
	rec.Visibility = Visibility(visibility)
	rec.CreatedAt = time.Unix(0, createdAt)
	rec.UpdatedAt = time.Unix(0, updatedAt)
	if err := json.Unmarshal([]byte(payload), &rec.Data); err != nil {
		return nil, fmt.Errorf("unmarshal record data: %w", err)
	}
	return &rec, nil
}

// GetMember retrieves a member by id. Returns nil if the member is unknown.
func (s *SQLiteStore) GetMember(ctx context.Context, memberID string) (*Member, error) {
	query := `SELECT member_id, name, created_at, last_seen_at FROM members WHERE member_id = ?`
	row := s.db.QueryRowContext(ctx, query, memberID)

	var m Member
	var createdAt, lastSeen int64
	err := row.Scan(&m.ID, &m.Name, &createdAt, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan member row: %w", err)
	}
	m.CreatedAt = time.Unix(0, createdAt)
	m.LastSeenAt = time.Unix(0, lastSeen)
	return &m, nil
}

// UpsertMember creates or refreshes a member row.
func (s *SQLiteStore) UpsertMember(ctx context.Context, member *Member) error {
	now := time.Now()
	query := `
		INSERT INTO members (member_id, name, created_at, last_seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(member_id) DO UPDATE SET
			name = excluded.name,
			last_seen_at = excluded.last_seen_at`
	_, err := s.db.ExecContext(ctx, query, member.ID, member.Name, now.UnixNano(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

// ListMembers returns all known members.
func (s *SQLiteStore) ListMembers(ctx context.Context) ([]*Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT member_id, name, created_at, last_seen_at FROM members ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []*Member
	for rows.Next() {
		var m Member
		var createdAt, lastSeen int64
		if err := rows.Scan(&m.ID, &m.Name, &createdAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		m.CreatedAt = time.Unix(0, createdAt)
		m.LastSeenAt = time.Unix(0, lastSeen)
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}
