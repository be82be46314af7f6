package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists failure records to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite failure journal.
// The path should be a file path (e.g., "./failures.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS listener_failures (
			id TEXT PRIMARY KEY,
			channel TEXT NOT NULL,
			listener TEXT NOT NULL,
			message TEXT NOT NULL,
			occurred_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listener_failures_channel
		ON listener_failures(channel)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, rec *FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listener_failures (id, channel, listener, message, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.Channel, rec.Listener, rec.Message,
		rec.OccurredAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("append failure record: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*FailureRecord, error) {
	return s.query(ctx, `
		SELECT id, channel, listener, message, occurred_at
		FROM listener_failures
		ORDER BY occurred_at DESC
	`, nil, limit)
}

// ListByChannel implements Store.
func (s *SQLiteStore) ListByChannel(ctx context.Context, channel string, limit int) ([]*FailureRecord, error) {
	return s.query(ctx, `
		SELECT id, channel, listener, message, occurred_at
		FROM listener_failures
		WHERE channel = ?
		ORDER BY occurred_at DESC
	`, []any{channel}, limit)
}

// query runs a SELECT with an optional LIMIT and scans the rows.
func (s *SQLiteStore) query(ctx context.Context, q string, args []any, limit int) ([]*FailureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list failure records: %w", err)
	}
	defer rows.Close()

	var records []*FailureRecord
	for rows.Next() {
		var rec FailureRecord
		var occurredAt string
		if err := rows.Scan(&rec.ID, &rec.Channel, &rec.Listener, &rec.Message, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan failure record: %w", err)
		}
		rec.OccurredAt, _ = time.Parse(time.RFC3339Nano, occurredAt)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failure records: %w", err)
	}
	return records, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM listener_failures
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failure records: %w", err)
	}
	return count, nil
}

// CountByChannel implements Store.
func (s *SQLiteStore) CountByChannel(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT channel, COUNT(*)
		FROM listener_failures
		GROUP BY channel
	`)
	if err != nil {
		return nil, fmt.Errorf("count failure records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var channel string
		var count int
		if err := rows.Scan(&channel, &count); err != nil {
			return nil, fmt.Errorf("scan failure count: %w", err)
		}
		counts[channel] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failure counts: %w", err)
	}
	return counts, nil
}

// Prune implements Store.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM listener_failures WHERE occurred_at < ?
	`, before.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune failure records: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune failure records: %w", err)
	}
	return int(n), nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
