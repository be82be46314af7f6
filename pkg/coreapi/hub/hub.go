package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/coreapi/pkg/coreapi/journal"
	"github.com/randalmurphal/coreapi/pkg/coreapi/registry"
)

// Sentinel errors for listener registration.
var (
	// ErrEmptyChannel indicates On was called with an empty channel name.
	ErrEmptyChannel = errors.New("channel name is required")

	// ErrNilListener indicates On was called with a nil listener.
	ErrNilListener = errors.New("listener is required")

	// ErrArityMismatch indicates a listener's declared argument count does not
	// match the channel's registered signature.
	ErrArityMismatch = errors.New("listener arity does not match channel signature")

	// ErrArityUndeclared indicates strict validation rejected a listener that
	// did not declare its argument count for a signed channel.
	ErrArityUndeclared = errors.New("listener must declare arity for signed channel")
)

// DispatchError represents a contained listener failure during dispatch.
type DispatchError struct {
	Channel  string // Channel being dispatched
	Listener string // Listener that failed
	Message  string // Error message
	Err      error  // Underlying error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dispatch %s: listener %s: %s: %v", e.Channel, e.Listener, e.Message, e.Err)
	}
	return fmt.Sprintf("dispatch %s: listener %s: %s", e.Channel, e.Listener, e.Message)
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// ListenerFunc is the contract every listener satisfies: it receives the
// dispatch arguments and returns a result or an error. Errors and panics are
// contained per listener.
type ListenerFunc func(args []any) (any, error)

// Middleware wraps listener invocation to add cross-cutting concerns.
type Middleware func(channel, listener string, next ListenerFunc) ListenerFunc

// Config configures hub behavior.
type Config struct {
	// Logger receives contained listener failures.
	// Default: slog.Default()
	Logger *slog.Logger

	// Journal, when set, records every contained listener failure.
	Journal journal.Store

	// StrictSignatures requires listeners on signed channels to declare
	// their arity at registration.
	// Default: false (mismatches are still rejected when both sides declare)
	StrictSignatures bool

	// MaxListeners limits listeners per channel.
	// Default: 0 (unlimited)
	MaxListeners int

	// OnError is called for every contained listener failure (for metrics).
	OnError func(channel, listener string, err error)

	// OnDispatch is called after each dispatch completes (for metrics).
	OnDispatch func(channel string, listeners int, duration time.Duration)
}

// Hub is a process-wide named-channel listener registry with ordered fan-out.
//
// Registration is expected to happen predominantly during initialization;
// dispatch is safe to call concurrently from many goroutines.
type Hub struct {
	config Config

	mu         sync.RWMutex
	channels   map[string][]*listenerEntry
	middleware []Middleware

	signatures *registry.Registry[string, Signature]
	nextID     atomic.Int64
}

// listenerEntry pairs a listener with the identity used for removal.
type listenerEntry struct {
	id    int64
	name  string
	arity int // -1 when undeclared
	fn    ListenerFunc
}

// New creates a new hub.
func New(config Config) *Hub {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Hub{
		config:     config,
		channels:   make(map[string][]*listenerEntry),
		signatures: registry.New[string, Signature](),
	}
}

// ListenerOption configures listener registration.
type ListenerOption func(*listenerEntry)

// WithListenerName sets the listener's name, used to key results in
// DispatchWithResults and to identify the listener in logs and the failure
// journal. Default: "listener-<n>".
func WithListenerName(name string) ListenerOption {
	return func(e *listenerEntry) {
		e.name = name
	}
}

// WithArity declares how many arguments the listener expects. Declared
// arity is validated against the channel's registered signature at On time.
func WithArity(n int) ListenerOption {
	return func(e *listenerEntry) {
		e.arity = n
	}
}

// Subscription identifies a registered listener for later removal.
type Subscription struct {
	hub     *Hub
	channel string
	id      int64
	name    string
}

// Channel returns the channel the subscription is registered on.
func (s *Subscription) Channel() string { return s.channel }

// Name returns the listener's registered name.
func (s *Subscription) Name() string { return s.name }

// Remove unregisters the listener. The order of the remaining listeners on
// the channel is preserved. Remove is idempotent.
func (s *Subscription) Remove() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	entries := s.hub.channels[s.channel]
	for i, e := range entries {
		if e.id == s.id {
			s.hub.channels[s.channel] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// On registers a listener at the end of the channel's dispatch order.
// Many listeners may share a channel; subscription order is dispatch order.
func (h *Hub) On(channel string, fn ListenerFunc, opts ...ListenerOption) (*Subscription, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: channel %q", ErrNilListener, channel)
	}

	entry := &listenerEntry{
		id:    h.nextID.Add(1),
		arity: -1,
		fn:    fn,
	}
	for _, opt := range opts {
		opt(entry)
	}
	if entry.name == "" {
		entry.name = fmt.Sprintf("listener-%d", entry.id)
	}

	if err := h.checkSignature(channel, entry); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.config.MaxListeners > 0 && len(h.channels[channel]) >= h.config.MaxListeners {
		return nil, fmt.Errorf("channel %q has reached its listener limit (%d)", channel, h.config.MaxListeners)
	}

	// Middleware registered so far wraps this listener, innermost last.
	for i := len(h.middleware) - 1; i >= 0; i-- {
		entry.fn = h.middleware[i](channel, entry.name, entry.fn)
	}

	h.channels[channel] = append(h.channels[channel], entry)

	return &Subscription{hub: h, channel: channel, id: entry.id, name: entry.name}, nil
}

// Use adds middleware applied to subsequently registered listeners.
// The first middleware added is outermost.
func (h *Hub) Use(mw Middleware) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.middleware = append(h.middleware, mw)
}

// Dispatch invokes every listener registered for channel, in registration
// order, each receiving the same args. Each listener's return value is
// captured positionally; a failed listener's slot is nil and the failure is
// logged, journaled, and contained.
func (h *Hub) Dispatch(channel string, args ...any) []any {
	entries := h.snapshot(channel)
	if len(entries) == 0 {
		return nil
	}

	start := time.Now()
	results := make([]any, len(entries))
	for i, entry := range entries {
		value, err := h.invoke(channel, entry, args)
		if err != nil {
			h.containFailure(channel, entry.name, err)
			continue
		}
		results[i] = value
	}

	if h.config.OnDispatch != nil {
		h.config.OnDispatch(channel, len(entries), time.Since(start))
	}
	return results
}

// DispatchWithResults invokes every listener like Dispatch, but returns a
// wrapped result per listener distinguishing success values from contained
// failures, so callers can inspect partial failures.
func (h *Hub) DispatchWithResults(channel string, args ...any) *Results {
	entries := h.snapshot(channel)

	start := time.Now()
	results := newResults(len(entries))
	for _, entry := range entries {
		value, err := h.invoke(channel, entry, args)
		if err != nil {
			h.containFailure(channel, entry.name, err)
		}
		results.add(Result{Listener: entry.name, Value: value, Err: err})
	}

	if h.config.OnDispatch != nil && len(entries) > 0 {
		h.config.OnDispatch(channel, len(entries), time.Since(start))
	}
	return results
}

// HasListeners returns true if at least one listener is registered for channel.
func (h *Hub) HasListeners(channel string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel]) > 0
}

// ListenerCount returns the number of listeners registered for channel.
func (h *Hub) ListenerCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Reset clears the entire listener registry. Intended for test isolation
// only; production code should remove individual subscriptions instead.
func (h *Hub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.channels = make(map[string][]*listenerEntry)
	h.middleware = nil
}

// snapshot returns the channel's listeners under read lock.
func (h *Hub) snapshot(channel string) []*listenerEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.channels[channel]
	if len(entries) == 0 {
		return nil
	}
	out := make([]*listenerEntry, len(entries))
	copy(out, entries)
	return out
}

// invoke runs a single listener, converting panics into errors.
func (h *Hub) invoke(channel string, entry *listenerEntry, args []any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DispatchError{
				Channel:  channel,
				Listener: entry.name,
				Message:  fmt.Sprintf("listener panic: %v", r),
			}
		}
	}()
	return entry.fn(args)
}

// containFailure logs, journals, and reports a contained listener failure.
func (h *Hub) containFailure(channel, listener string, err error) {
	h.config.Logger.Error("listener failed during dispatch",
		slog.String("channel", channel),
		slog.String("listener", listener),
		slog.String("error", err.Error()),
	)

	if h.config.Journal != nil {
		rec := journal.NewFailureRecord(channel, listener, err)
		if appendErr := h.config.Journal.Append(context.Background(), rec); appendErr != nil {
			h.config.Logger.Warn("failure journal append failed",
				slog.String("channel", channel),
				slog.String("error", appendErr.Error()),
			)
		}
	}

	if h.config.OnError != nil {
		h.config.OnError(channel, listener, err)
	}
}
