// Package history persists one row per device execution in SQLite.
package history

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Sources of an execution row.
const (
	SourceExec   = "exec"
	SourceBatch  = "batch"
	SourceConfig = "config"
)

// Entry is one recorded device execution.
type Entry struct {
	ID         int64  `json:"id"`
	ExecutedAt string `json:"executed_at"`
	Router     string `json:"router"`
	Source     string `json:"source"`
	Command    string `json:"command"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	executed_at TEXT NOT NULL,
	router TEXT NOT NULL,
	source TEXT NOT NULL,
	command TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_executions_at ON executions(executed_at);
`

// Store is the execution history database. Writes are serialized; SQLite
// takes one writer at a time.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts one execution row. ExecutedAt defaults to now.
func (s *Store) Record(e Entry) error {
	if e.ExecutedAt == "" {
		e.ExecutedAt = time.Now().UTC().Format(time.RFC3339)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO executions (executed_at, router, source, command, status, duration_ms, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ExecutedAt, e.Router, e.Source, e.Command, e.Status, e.DurationMS, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// Recent returns up to limit rows, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, executed_at, router, source, command, status, duration_ms, detail
		 FROM executions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ExecutedAt, &e.Router, &e.Source, &e.Command, &e.Status, &e.DurationMS, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
