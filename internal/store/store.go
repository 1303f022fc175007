package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed symbol index. It implements index.Index so the
// synthesizer and the reconciliation engine can run against a persistent
// database as well as the in-memory index.
type Store struct {
	db *sql.DB

	// singletonMu serializes find-or-create of class-level scopes.
	singletonMu sync.Mutex

	completeOnce sync.Once
	complete     chan struct{}
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, complete: make(chan struct{})}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  uri             TEXT NOT NULL UNIQUE,
  hash            TEXT,
  entry_count     INTEGER DEFAULT 0,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
  id              INTEGER PRIMARY KEY,
  uri             TEXT NOT NULL,
  owner           TEXT NOT NULL DEFAULT '',
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  visibility      TEXT,
  comments        TEXT,
  signatures      TEXT NOT NULL DEFAULT '[]',
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  UNIQUE (uri, owner, name)
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_entries_name ON entries(name);
CREATE INDEX IF NOT EXISTS idx_entries_owner ON entries(owner);
CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
`

const metaIndexingComplete = "indexing_complete"

// MarkComplete records that initial indexing has finished and wakes any
// Completed waiters. Safe to call more than once.
func (s *Store) MarkComplete() error {
	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, 'true')", metaIndexingComplete,
	); err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}
	s.completeOnce.Do(func() { close(s.complete) })
	return nil
}

// ResetComplete clears the persisted completion flag before a re-index.
// Waiters already released by an earlier MarkComplete stay released.
func (s *Store) ResetComplete() error {
	if _, err := s.db.Exec("DELETE FROM metadata WHERE key = ?", metaIndexingComplete); err != nil {
		return fmt.Errorf("reset complete: %w", err)
	}
	return nil
}

// IndexingComplete reports whether MarkComplete has run against this
// database, in this process or an earlier one.
func (s *Store) IndexingComplete() bool {
	select {
	case <-s.complete:
		return true
	default:
	}
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", metaIndexingComplete).Scan(&v)
	return err == nil && v == "true"
}

// Completed is closed once MarkComplete runs in this process.
func (s *Store) Completed() <-chan struct{} {
	return s.complete
}
