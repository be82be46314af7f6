/*
Package coreapi provides a correlation backbone for instrumented programs:
a tree of execution scopes with inherited key/value data, and a synchronous
event hub that decouples the code producing lifecycle events from the
product features consuming them.

# Overview

Instrumentation code opens a scope around each unit of work it wraps (a
request, a query, a job). The scope is an ExecutionContext node: it carries
local data, inherits reads from its ancestors, and announces its start and
end on named hub channels. Product features subscribe to the channels of the
scope kinds they care about and pull correlated state off the node, without
the instrumentation knowing they exist.

Three properties do the heavy lifting:

  - Reads walk the parent chain; writes stay local. A child sees its
    ancestors' data but can only shadow it, never overwrite it.
  - Each strand of execution has its own current node, so concurrent
    strands build independent scope chains over a shared process.
  - Dispatch is synchronous and ordered, and one failing listener never
    affects the others or the dispatching code.

# Basic Usage

Instrumentation wraps work in Run, which pairs scope entry and exit:

	ctx := coreapi.WithStrand(context.Background())

	err := coreapi.Run(ctx, "http.request", map[string]any{
	    "http.method": "GET",
	}, func(ctx context.Context, node *coreapi.ExecutionContext) error {
	    return handle(ctx)
	})

A product feature subscribes once at initialization and receives every
scope of that kind:

	hub.On(coreapi.StartedChannel("http.request"), func(args []any) (any, error) {
	    node := args[0].(*coreapi.ExecutionContext)
	    node.SetItem("feature.enabled", true)
	    return nil, nil
	})

# Data Inheritance

Nested scopes read through to enclosing ones:

	coreapi.Run(ctx, "request", map[string]any{"user": "u-1"}, func(ctx context.Context, _ *coreapi.ExecutionContext) error {
	    return coreapi.Run(ctx, "query", nil, func(ctx context.Context, node *coreapi.ExecutionContext) error {
	        _ = node.GetItem("user") // "u-1", inherited from the request scope
	        node.SetItem("user", "u-2")
	        _ = node.GetItem("user") // "u-2", local shadow; the request scope still holds "u-1"
	        return nil
	    })
	})

A key stored with a nil value is present, not absent; use LookupItem to
distinguish the two.

# Strands

WithStrand gives a goroutine its own current-node slot. Scopes entered on
one strand never appear as another strand's current node, even while both
read shared ancestor data:

	go func() {
	    ctx := coreapi.WithStrand(context.Background())
	    coreapi.Run(ctx, "worker.task", nil, work)
	}()

Goroutines that skip WithStrand share a process-wide fallback root; that is
fine for single-strand programs and tests, but concurrent strands should
each call WithStrand.

# Spans

Nodes can carry an opaque span handle as their correlation identity. The
usual flow is reactive: a listener on the start_span channel creates a span
and binds it with SetSpan. ActiveSpan returns the nearest bound span on the
current chain. The observability package's TraceBridge wires this up for
OpenTelemetry.
*/
package coreapi
