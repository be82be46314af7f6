// Package journal records listener failures observed during hub dispatch.
//
// The hub isolates a failing listener from its siblings on the same channel;
// the journal is where those contained failures land so operators can inspect
// them after the fact. Two Store implementations are provided: an in-memory
// store for tests and short-lived processes, and a SQLite-backed store for
// single-process production use.
//
// The journal is observability infrastructure. Core context and hub state is
// never persisted; only failure records pass through here.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for journal stores.
var (
	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("journal store closed")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("failure record not found")
)

// FailureRecord captures one contained listener failure.
type FailureRecord struct {
	// ID uniquely identifies this record.
	ID string `json:"id"`

	// Channel is the hub channel being dispatched when the listener failed.
	Channel string `json:"channel"`

	// Listener is the registered name of the failing listener.
	Listener string `json:"listener"`

	// Message is the listener's error text.
	Message string `json:"message"`

	// OccurredAt is when the failure was observed.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewFailureRecord creates a record for a listener failure.
func NewFailureRecord(channel, listener string, err error) *FailureRecord {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &FailureRecord{
		ID:         uuid.New().String(),
		Channel:    channel,
		Listener:   listener,
		Message:    msg,
		OccurredAt: time.Now().UTC(),
	}
}

// Store persists and retrieves listener failure records.
type Store interface {
	// Append adds a failure record.
	Append(ctx context.Context, rec *FailureRecord) error

	// List returns the most recent records, newest first.
	// limit <= 0 returns all records.
	List(ctx context.Context, limit int) ([]*FailureRecord, error)

	// ListByChannel returns the most recent records for a channel, newest first.
	ListByChannel(ctx context.Context, channel string, limit int) ([]*FailureRecord, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int, error)

	// CountByChannel returns record counts grouped by channel.
	CountByChannel(ctx context.Context) (map[string]int, error)

	// Prune removes records older than the cutoff, returning how many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)

	// Close releases store resources.
	Close() error
}
