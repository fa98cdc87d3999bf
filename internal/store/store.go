// Package store records the results of check runs in SQLite so they can be
// listed and compared later.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for run history.
type Store struct {
	db *sql.DB
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
	return &Store{db: db}, nil
}

// Open opens the database at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	s, err := NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the history tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              INTEGER PRIMARY KEY,
  root            TEXT NOT NULL,
  rules_hash      TEXT NOT NULL,
  started_at      TIMESTAMP NOT NULL,
  duration_ms     INTEGER NOT NULL,
  files_scanned   INTEGER NOT NULL,
  files_parsed    INTEGER NOT NULL,
  max_problems    TEXT NOT NULL,
  problems        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS irritations (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  path            TEXT,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  message         TEXT NOT NULL,
  label           TEXT
);

CREATE INDEX IF NOT EXISTS idx_irritations_run ON irritations(run_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root, started_at);
`
