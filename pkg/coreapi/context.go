package coreapi

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/randalmurphal/coreapi/pkg/coreapi/hub"
)

// RootIdentifier is the identifier of the synthetic root node at the base of
// every strand's context chain.
const RootIdentifier = "__root"

// SpanKeyItem names the data item that, when set on a node, mirrors the
// node's bound span into the node's data under the value of this item.
const SpanKeyItem = "span_key"

// State tracks a node's position in its lifecycle.
type State int

const (
	// StateCreated is the initial state: the node exists but has not been
	// entered.
	StateCreated State = iota

	// StateActive means the node has been entered and its started events
	// dispatched.
	StateActive

	// StateEnded means the node has been exited. Ended nodes remain readable
	// but can no longer be entered.
	StateEnded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ExecutionContext is one node in a tree of execution scopes. Each node
// carries local key/value data, an optional parent, and an optional bound
// span handle. Reads walk the parent chain; writes and discards of local
// items touch only the node itself.
//
// A node is typically created and entered through Run. Nodes are safe for
// concurrent reads; a node's local data is guarded so cross-strand reads of
// shared ancestors are race-free.
type ExecutionContext struct {
	identifier string
	id         string

	mu         sync.RWMutex
	parent     *ExecutionContext
	data       map[string]any
	span       any
	spanGiven  bool
	spanWarned bool
	suppressed []error
	state      State

	hub    *hub.Hub
	logger *slog.Logger

	// Enter/Exit bookkeeping for current-node restoration.
	slot *strandSlot
	prev *ExecutionContext
}

// Option configures a node at construction.
type Option func(*ExecutionContext)

// WithParent sets the node's parent. A parent can be assigned only once,
// whether via this option or SetParent.
func WithParent(parent *ExecutionContext) Option {
	return func(c *ExecutionContext) {
		c.parent = parent
	}
}

// WithData seeds the node's local data. The map is copied.
func WithData(data map[string]any) Option {
	return func(c *ExecutionContext) {
		for k, v := range data {
			c.data[k] = v
		}
	}
}

// WithSpan binds an externally owned span to the node. A node entered with
// an external span does not become the strand's current node; the span owner
// keeps control of scoping. Prefer letting the started events create and
// bind spans instead.
func WithSpan(span any) Option {
	return func(c *ExecutionContext) {
		c.span = span
		c.spanGiven = true
	}
}

// WithHub routes the node's lifecycle events to a specific hub instead of
// the process-wide default.
func WithHub(h *hub.Hub) Option {
	return func(c *ExecutionContext) {
		c.hub = h
	}
}

// WithNodeLogger sets the logger used for lifecycle diagnostics.
// Never nil at use time: defaults to slog.Default().
func WithNodeLogger(logger *slog.Logger) Option {
	return func(c *ExecutionContext) {
		c.logger = logger
	}
}

// WithSuppressed registers error kinds whose occurrence inside the node's
// scope counts as handled. Matching uses errors.Is.
func WithSuppressed(kinds ...error) Option {
	return func(c *ExecutionContext) {
		c.suppressed = append(c.suppressed, kinds...)
	}
}

// New creates a node in the Created state.
func New(identifier string, opts ...Option) *ExecutionContext {
	c := &ExecutionContext{
		identifier: identifier,
		id:         uuid.New().String(),
		data:       make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.span != nil {
		c.mirrorSpanLocked(c.span)
	}
	return c
}

// newRoot creates the synthetic root node for a strand.
func newRoot() *ExecutionContext {
	return New(RootIdentifier)
}

// Identifier returns the node's type label. Identifiers name the kind of
// scope and recur across nodes; use ID for per-node identity.
func (c *ExecutionContext) Identifier() string { return c.identifier }

// ID returns the node's unique identity.
func (c *ExecutionContext) ID() string { return c.id }

// State returns the node's lifecycle state.
func (c *ExecutionContext) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Parent returns the node's parent, or nil at the top of a chain.
func (c *ExecutionContext) Parent() *ExecutionContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.parent
}

// SetParent assigns the node's parent. Returns ErrParentOverwrite if a
// parent is already set.
func (c *ExecutionContext) SetParent(parent *ExecutionContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.parent != nil {
		return fmt.Errorf("%w: node %q", ErrParentOverwrite, c.identifier)
	}
	c.parent = parent
	return nil
}

// Root returns the topmost node of the chain. A node whose identifier is
// RootIdentifier is its own root regardless of linkage.
func (c *ExecutionContext) Root() *ExecutionContext {
	if c.identifier == RootIdentifier {
		return c
	}
	node := c
	for {
		parent := node.Parent()
		if parent == nil {
			return node
		}
		node = parent
	}
}

// LookupItem returns the value stored under key on the node or its nearest
// ancestor. A key present with a nil value is a hit; the ok result is the
// only way to distinguish a stored nil from absence.
func (c *ExecutionContext) LookupItem(key string) (any, bool) {
	for node := c; node != nil; node = node.Parent() {
		if value, ok := node.LookupLocalItem(key); ok {
			return value, true
		}
	}
	return nil, false
}

// GetItem returns the value stored under key on the node or its nearest
// ancestor, or nil if no node in the chain has it.
func (c *ExecutionContext) GetItem(key string) any {
	value, _ := c.LookupItem(key)
	return value
}

// GetItems returns the chain-resolved values for each key, positionally.
func (c *ExecutionContext) GetItems(keys ...string) []any {
	values := make([]any, len(keys))
	for i, key := range keys {
		values[i] = c.GetItem(key)
	}
	return values
}

// LookupLocalItem returns the value stored under key on this node only.
func (c *ExecutionContext) LookupLocalItem(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.data[key]
	return value, ok
}

// GetLocalItem returns the value stored under key on this node only, or nil.
func (c *ExecutionContext) GetLocalItem(key string) any {
	value, _ := c.LookupLocalItem(key)
	return value
}

// SetItem stores value under key on this node. Ancestors are never written;
// a same-named ancestor item is shadowed, not modified.
func (c *ExecutionContext) SetItem(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// SetItems stores every entry of items on this node.
func (c *ExecutionContext) SetItems(items map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range items {
		c.data[k] = v
	}
}

// SetSafe stores value under key on this node, failing with ErrKeyConflict
// if the key is already present locally. Ancestor items do not conflict.
func (c *ExecutionContext) SetSafe(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return fmt.Errorf("%w: %q on node %q", ErrKeyConflict, key, c.identifier)
	}
	c.data[key] = value
	return nil
}

// DiscardItem removes key from the nearest node in the chain that holds it.
// Unlike SetItem, this may mutate an ancestor: a discard from a child can
// remove state that other descendants of that ancestor still observe.
func (c *ExecutionContext) DiscardItem(key string) {
	for node := c; node != nil; node = node.Parent() {
		node.mu.Lock()
		if _, ok := node.data[key]; ok {
			delete(node.data, key)
			node.mu.Unlock()
			return
		}
		node.mu.Unlock()
	}
}

// DiscardLocalItem removes key from this node only. Removing an absent key
// is a no-op.
func (c *ExecutionContext) DiscardLocalItem(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// AddSuppressedKind registers an error kind whose occurrence inside the
// node's scope counts as handled.
func (c *ExecutionContext) AddSuppressedKind(kinds ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suppressed = append(c.suppressed, kinds...)
}

// dispatchHub returns the hub lifecycle events go to.
func (c *ExecutionContext) dispatchHub() *hub.Hub {
	if c.hub != nil {
		return c.hub
	}
	return hub.Default()
}

// log returns the node's diagnostics logger.
func (c *ExecutionContext) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}
