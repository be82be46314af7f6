package journal

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation.
// Suitable for testing and single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*FailureRecord // append order, oldest first
	maxSize int
	closed  bool
}

// MemoryStoreConfig configures the in-memory store.
type MemoryStoreConfig struct {
	// MaxSize limits the number of retained records; once full, the oldest
	// records are evicted. Default: 10000.
	MaxSize int
}

// DefaultMemoryStoreConfig provides reasonable defaults.
var DefaultMemoryStoreConfig = MemoryStoreConfig{
	MaxSize: 10000,
}

// NewMemoryStore creates a new in-memory failure journal.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMemoryStoreConfig.MaxSize
	}
	return &MemoryStore{maxSize: cfg.MaxSize}
}

// Append adds a failure record, evicting the oldest when full.
func (s *MemoryStore) Append(_ context.Context, rec *FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if len(s.records) >= s.maxSize {
		drop := len(s.records) - s.maxSize + 1
		s.records = s.records[drop:]
	}

	clone := *rec
	s.records = append(s.records, &clone)
	return nil
}

// List returns the most recent records, newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*FailureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.collectLocked(limit, func(*FailureRecord) bool { return true }), nil
}

// ListByChannel returns the most recent records for a channel, newest first.
func (s *MemoryStore) ListByChannel(_ context.Context, channel string, limit int) ([]*FailureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.collectLocked(limit, func(r *FailureRecord) bool { return r.Channel == channel }), nil
}

// collectLocked walks records newest-first applying the filter (must hold lock).
func (s *MemoryStore) collectLocked(limit int, match func(*FailureRecord) bool) []*FailureRecord {
	out := make([]*FailureRecord, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if match(s.records[i]) {
			clone := *s.records[i]
			out = append(out, &clone)
		}
	}
	return out
}

// Count returns the total number of records.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	return len(s.records), nil
}

// CountByChannel returns record counts grouped by channel.
func (s *MemoryStore) CountByChannel(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	counts := make(map[string]int)
	for _, rec := range s.records {
		counts[rec.Channel]++
	}
	return counts, nil
}

// Prune removes records older than the cutoff.
func (s *MemoryStore) Prune(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	kept := s.records[:0]
	removed := 0
	for _, rec := range s.records {
		if rec.OccurredAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return removed, nil
}

// Close marks the store closed; further operations fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
