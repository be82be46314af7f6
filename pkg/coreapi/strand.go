package coreapi

import (
	"context"
	"sync"
	"sync/atomic"
)

// strandSlot is the mutable current-node cell a strand carries through its
// context.Context. The slot is created once per strand; Enter and Exit swap
// the current pointer under its lock.
type strandSlot struct {
	mu      sync.Mutex
	current *ExecutionContext
}

type strandKeyType struct{}

var strandKey strandKeyType

// fallbackSlot serves goroutines whose context was never prepared with
// WithStrand. They all share one root; isolation requires WithStrand.
var fallbackSlot atomic.Pointer[strandSlot]

func init() {
	fallbackSlot.Store(&strandSlot{current: newRoot()})
}

// WithStrand returns a context carrying a fresh current-node slot seeded
// with a new root node. Each strand of execution (goroutine, request) gets
// its own slot; scopes entered on one strand are invisible to others.
func WithStrand(ctx context.Context) context.Context {
	return context.WithValue(ctx, strandKey, &strandSlot{current: newRoot()})
}

// slotFrom returns the strand's slot, or the process-wide fallback when the
// context carries none.
func slotFrom(ctx context.Context) *strandSlot {
	if ctx != nil {
		if slot, ok := ctx.Value(strandKey).(*strandSlot); ok {
			return slot
		}
	}
	return fallbackSlot.Load()
}

// Current returns the strand's current node. Never nil: a strand that has
// entered no scope resolves to its root node.
func Current(ctx context.Context) *ExecutionContext {
	slot := slotFrom(ctx)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.current == nil {
		slot.current = newRoot()
	}
	return slot.current
}

// CurrentRoot returns the root of the strand's current chain.
func CurrentRoot(ctx context.Context) *ExecutionContext {
	return Current(ctx).Root()
}

// ResetForTesting replaces the process-wide fallback slot with a fresh root,
// severing any state leaked by tests that ran without WithStrand. Strand
// slots need no reset; dropping the derived context drops the slot.
func ResetForTesting() {
	fallbackSlot.Store(&strandSlot{current: newRoot()})
}

// Package-level data accessors, each operating on the strand's current node.

// LookupItem resolves key against the current node's chain.
func LookupItem(ctx context.Context, key string) (any, bool) {
	return Current(ctx).LookupItem(key)
}

// GetItem resolves key against the current node's chain, nil when absent.
func GetItem(ctx context.Context, key string) any {
	return Current(ctx).GetItem(key)
}

// GetItems resolves each key against the current node's chain.
func GetItems(ctx context.Context, keys ...string) []any {
	return Current(ctx).GetItems(keys...)
}

// GetLocalItem reads key from the current node only.
func GetLocalItem(ctx context.Context, key string) any {
	return Current(ctx).GetLocalItem(key)
}

// SetItem stores key on the current node.
func SetItem(ctx context.Context, key string, value any) {
	Current(ctx).SetItem(key, value)
}

// SetItems stores every entry on the current node.
func SetItems(ctx context.Context, items map[string]any) {
	Current(ctx).SetItems(items)
}

// SetSafe stores key on the current node, failing if it is already present
// locally.
func SetSafe(ctx context.Context, key string, value any) error {
	return Current(ctx).SetSafe(key, value)
}

// DiscardItem removes key from the nearest holder in the current chain.
func DiscardItem(ctx context.Context, key string) {
	Current(ctx).DiscardItem(key)
}

// DiscardLocalItem removes key from the current node only.
func DiscardLocalItem(ctx context.Context, key string) {
	Current(ctx).DiscardLocalItem(key)
}

// AddSuppressedKind registers suppressed error kinds on the current node.
func AddSuppressedKind(ctx context.Context, kinds ...error) {
	Current(ctx).AddSuppressedKind(kinds...)
}
