// Package hub provides the named-channel event dispatch core of coreapi.
//
// # Overview
//
// The hub is the sole coordination surface between instrumentation adapters
// (integrations) and the subsystems that consume their signals (products).
// Integrations publish by dispatching on a channel name; products subscribe
// with On. Neither side imports the other.
//
//   - Channels are plain strings; lifecycle channels follow the
//     "context.[started|ended].<identifier>" convention, ad hoc signals use
//     "<namespace>.<event>".
//   - Listeners run synchronously, in subscription order, on the dispatching
//     goroutine. The hub introduces no concurrency of its own.
//   - A failing listener (error return or panic) never prevents the remaining
//     listeners on the channel from running. Plain Dispatch degrades the
//     failed slot to nil; DispatchWithResults surfaces the failure per
//     listener.
//
// # Subscribing and dispatching
//
//	sub, err := hub.On("web.request.blocked", func(args []any) (any, error) {
//	    req := args[0].(*http.Request)
//	    return blockVerdict(req), nil
//	}, hub.WithListenerName("appsec"), hub.WithArity(1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sub.Remove()
//
//	results := hub.DispatchWithResults("web.request.blocked", req)
//	if r, ok := results.Get("appsec"); ok && r.Ok() {
//	    applyVerdict(r.Value)
//	}
//
// # Signatures
//
// Channel owners may register a Signature declaring the argument shape their
// channel carries. Listeners that declare an arity are checked against it at
// registration time, so shape mismatches fail at On rather than mid-dispatch.
//
// # Failure journal
//
// When a journal.Store is configured, every contained listener failure is
// appended to it best-effort, giving operators a queryable record of failures
// that plain Dispatch would otherwise only log.
package hub
