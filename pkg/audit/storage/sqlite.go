package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sentinel-hq/aegis/pkg/audit"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/audit.db",
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	seq        INTEGER PRIMARY KEY,
	id         TEXT NOT NULL,
	segment    INTEGER NOT NULL,
	timestamp  INTEGER NOT NULL,
	category   TEXT NOT NULL,
	severity   TEXT NOT NULL,
	payload    TEXT NOT NULL,
	prev_hash  TEXT NOT NULL,
	hash       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_segment ON audit_events(segment);
`

// SQLiteStorage implements audit.Storage using an append-only SQLite table.
// Events are never updated in place; the seq primary key rejects duplicates.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	// A single writer goroutine owns all appends; one connection keeps
	// SQLite's own locking out of the picture.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(auditSchema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}

	return nil
}

// Append persists one event.
func (s *SQLiteStorage) Append(ctx context.Context, e *audit.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return audit.NewStorageError("sqlite", "marshal_payload", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (seq, id, segment, timestamp, category, severity, payload, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Seq, e.ID, e.Segment, e.Timestamp.UnixNano(),
		string(e.Category), string(e.Severity), string(payload),
		e.PrevHash, e.Hash,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	return nil
}

// Events returns all stored events ordered by ascending seq.
func (s *SQLiteStorage) Events(ctx context.Context) ([]*audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, segment, timestamp, category, severity, payload, prev_hash, hash
		FROM audit_events ORDER BY seq ASC`)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	events := []*audit.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return events, nil
}

// Last returns the event with the highest seq, or nil when the table is empty.
func (s *SQLiteStorage) Last(ctx context.Context) (*audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, segment, timestamp, category, severity, payload, prev_hash, hash
		FROM audit_events ORDER BY seq DESC LIMIT 1`)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query_last", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, audit.NewStorageError("sqlite", "query_last", err)
		}
		return nil, nil
	}
	e, err := scanEvent(rows)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "scan", err)
	}
	return e, nil
}

// SegmentCount returns the number of events in a segment.
func (s *SQLiteStorage) SegmentCount(ctx context.Context, segment int) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_events WHERE segment = ?", segment).Scan(&n)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "segment_count", err)
	}
	return n, nil
}

// PruneSegments deletes all events in segments below minSegment.
// Returns the number of events deleted.
func (s *SQLiteStorage) PruneSegments(ctx context.Context, minSegment int) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_events WHERE segment < ?", minSegment)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}
	if deleted > 0 {
		s.logger.Info("pruned audit segments",
			"min_segment", minSegment,
			"events_deleted", deleted,
		)
	}
	return deleted, nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite audit storage closed")
	return nil
}

func scanEvent(rows *sql.Rows) (*audit.Event, error) {
	var e audit.Event
	var ts int64
	var category, severity, payload string

	err := rows.Scan(&e.Seq, &e.ID, &e.Segment, &ts,
		&category, &severity, &payload, &e.PrevHash, &e.Hash)
	if err != nil {
		return nil, err
	}

	e.Timestamp = time.Unix(0, ts).UTC()
	e.Category = audit.Category(category)
	e.Severity = audit.Severity(severity)
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, err
		}
	}
	return &e, nil
}
