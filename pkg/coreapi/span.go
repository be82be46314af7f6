package coreapi

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// SpanResolver supplies a span when a node has none bound. Hosts register
// one so reads of an unbound span fall back to whatever the host considers
// active, instead of returning nothing.
type SpanResolver func() any

var (
	spanResolver     atomic.Pointer[SpanResolver]
	rootSpanResolver atomic.Pointer[SpanResolver]
)

// SetSpanResolver registers the process-wide fallback consulted by Span when
// a node has no bound span. Pass nil to clear.
func SetSpanResolver(fn SpanResolver) {
	if fn == nil {
		spanResolver.Store(nil)
		return
	}
	spanResolver.Store(&fn)
}

// SetRootSpanResolver registers the process-wide fallback consulted by
// ActiveRootSpan when no node in the chain has a bound span. Pass nil to
// clear.
func SetRootSpanResolver(fn SpanResolver) {
	if fn == nil {
		rootSpanResolver.Store(nil)
		return
	}
	rootSpanResolver.Store(&fn)
}

// Span returns the node's bound span. When none is bound, the miss is
// logged once per node and the registered span resolver is consulted; a
// non-nil resolver result is bound to the node, so later reads return the
// same span without resolving again. Without a resolver the result is nil.
func (c *ExecutionContext) Span() any {
	c.mu.Lock()
	span := c.span
	warnNow := span == nil && !c.spanWarned
	if warnNow {
		c.spanWarned = true
	}
	c.mu.Unlock()

	if span != nil {
		return span
	}

	if warnNow {
		c.log().Warn("no span bound to context node",
			slog.String("identifier", c.identifier),
			slog.String("id", c.id),
		)
	}

	fn := spanResolver.Load()
	if fn == nil {
		return nil
	}
	resolved := (*fn)()
	if resolved == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.span == nil {
		c.span = resolved
		c.mirrorSpanLocked(resolved)
	}
	return c.span
}

// BoundSpan returns the node's bound span without fallback or logging.
func (c *ExecutionContext) BoundSpan() (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.span, c.span != nil
}

// SetSpan binds span to the node. When the node's data names a span key via
// SpanKeyItem, the span is also mirrored into the data under that name so
// chain lookups can resolve it.
func (c *ExecutionContext) SetSpan(span any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.span = span
	c.mirrorSpanLocked(span)
}

// mirrorSpanLocked writes span under the node's declared span key, if any.
// Caller holds c.mu (or owns the node exclusively during construction).
func (c *ExecutionContext) mirrorSpanLocked(span any) {
	key, ok := c.data[SpanKeyItem].(string)
	if !ok || key == "" {
		return
	}
	c.data[key] = span
}

// ActiveSpan returns the nearest bound span on the strand's current chain,
// starting from the current node and walking toward the root. Nil when no
// node in the chain has a span bound.
func ActiveSpan(ctx context.Context) any {
	for node := Current(ctx); node != nil; node = node.Parent() {
		if span, ok := node.BoundSpan(); ok {
			return span
		}
	}
	return nil
}

// ActiveRootSpan returns the span bound to the root of the strand's current
// chain, falling back to the registered root-span resolver when the root has
// none.
func ActiveRootSpan(ctx context.Context) any {
	if span, ok := CurrentRoot(ctx).BoundSpan(); ok {
		return span
	}
	if fn := rootSpanResolver.Load(); fn != nil {
		return (*fn)()
	}
	return nil
}

// spanOverrideMemo tracks nodes that already logged the external-span
// warning, so a node warns at most once. Entries are dropped on exit.
var spanOverrideMemo = struct {
	mu   sync.Mutex
	seen map[string]struct{}
}{seen: make(map[string]struct{})}

// warnSpanOverride logs once per node that an externally bound span is
// bypassing current-node bookkeeping.
func warnSpanOverride(c *ExecutionContext) {
	spanOverrideMemo.mu.Lock()
	_, logged := spanOverrideMemo.seen[c.id]
	if !logged {
		spanOverrideMemo.seen[c.id] = struct{}{}
	}
	spanOverrideMemo.mu.Unlock()

	if logged {
		return
	}
	c.log().Warn("context entered with externally bound span, current-node tracking bypassed",
		slog.String("identifier", c.identifier),
		slog.String("id", c.id),
	)
}

// forgetSpanOverride releases the node's warn-once entry.
func forgetSpanOverride(c *ExecutionContext) {
	spanOverrideMemo.mu.Lock()
	delete(spanOverrideMemo.seen, c.id)
	spanOverrideMemo.mu.Unlock()
}
