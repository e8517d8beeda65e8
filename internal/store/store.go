// Package store provides a SQLite-backed query history log. Every answered
// question is recorded so operators can review what the chatbot was asked
// and how it responded, across restarts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Entry is one recorded question and answer.
type Entry struct {
	// Query is the question as the client sent it.
	Query string
	// Answer is the generated response. Empty when the query failed.
	Answer string
	// Success records whether the pipeline completed.
	Success bool
	// ChunksUsed is the number of passages given to the model.
	ChunksUsed int
	// Duration is how long the full pipeline took.
	Duration time.Duration
	// CreatedAt is when the entry was persisted.
	CreatedAt time.Time
}

// HistoryStore persists and retrieves the query log. Implementations must
// be safe for concurrent use.
type HistoryStore interface {
	// Append persists a single query record.
	Append(ctx context.Context, e Entry) error
	// Recent returns the most recent n entries, newest-first. If fewer than
	// n exist, all are returned.
	Recent(ctx context.Context, n int) ([]Entry, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a HistoryStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the query history database.
// It resolves to ~/.ragbot/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".ragbot")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS queries (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    query        TEXT    NOT NULL,
    answer       TEXT    NOT NULL,
    success      INTEGER NOT NULL,
    chunks_used  INTEGER NOT NULL,
    duration_ms  INTEGER NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_queries_created
    ON queries (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append persists a single query record.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	const q = `INSERT INTO queries (query, answer, success, chunks_used, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	success := 0
	if e.Success {
		success = 1
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, q, e.Query, e.Answer, success, e.ChunksUsed, e.Duration.Milliseconds(), createdAt.Unix()); err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Recent returns the most recent n entries, newest-first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	const q = `
SELECT query, answer, success, chunks_used, duration_ms, created_at
FROM   queries
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var success int
		var durationMS, ts int64
		if err := rows.Scan(&e.Query, &e.Answer, &success, &e.ChunksUsed, &durationMS, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		e.Success = success == 1
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return entries, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
