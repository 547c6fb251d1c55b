package rule

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists the rule table (with its version column) so a store
// can be rebuilt across restarts. The full rule document is stored as JSON;
// status, priority, and version are surfaced as columns for inspection.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const ruleSchema = `
CREATE TABLE IF NOT EXISTS rules (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	priority   INTEGER NOT NULL,
	version    INTEGER NOT NULL,
	doc        TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rules_status ON rules(status);
`

// OpenSQLiteStore opens (creating if needed) a rule database at the given
// path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("rule db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		path, int((5 * time.Second).Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(ruleSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create rule schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "policy.rulestore.sqlite"),
	}
	s.logger.Info("rule database opened", "path", path)
	return s, nil
}

// Save upserts every rule of the store into the rule table.
func (s *SQLiteStore) Save(ctx context.Context, store *Store) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rule save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rules (id, status, priority, version, doc, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			priority = excluded.priority,
			version = excluded.version,
			doc = excluded.doc,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare rule upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	rules := store.List()
	for _, r := range rules {
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal rule %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, string(r.Status), r.Priority, r.Version, string(doc), now); err != nil {
			return fmt.Errorf("failed to save rule %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule save: %w", err)
	}

	s.logger.Info("rules saved", "rule_count", len(rules))
	return nil
}

// Load reads all persisted rules and returns them, disabled rules included.
func (s *SQLiteStore) Load(ctx context.Context) ([]*Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		var r Rule
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule document: %w", err)
		}
		rules = append(rules, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rule row iteration failed: %w", err)
	}

	return rules, nil
}

// Restore loads persisted rules into the given store, replacing its rule
// set. An empty table leaves the store untouched.
func (s *SQLiteStore) Restore(ctx context.Context, store *Store) error {
	rules, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	return store.Replace(rules)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
