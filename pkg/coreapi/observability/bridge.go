package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/coreapi/pkg/coreapi"
	"github.com/randalmurphal/coreapi/pkg/coreapi/hub"
)

// Data items the bridge keeps on the nodes it instruments.
const (
	// BridgeErrorItem is read at scope end: instrumentation that wants the
	// span marked failed stores the error under this key before exiting.
	BridgeErrorItem = "scope.error"

	// bridgeStartItem holds the scope's span start time for duration
	// metrics.
	bridgeStartItem = "otel.scope.start"
)

// BridgeConfig configures a TraceBridge.
type BridgeConfig struct {
	// Hub to subscribe on.
	// Default: hub.Default()
	Hub *hub.Hub

	// SpanManager used to start and end spans.
	// Default: NewSpanManager()
	SpanManager SpanManager

	// Metrics, when set, records scope lifetimes.
	Metrics MetricsRecorder

	// Logger for bridge diagnostics.
	// Default: slog.Default()
	Logger *slog.Logger
}

// TraceBridge is the product-side consumer of context lifecycle events: for
// each bound scope identifier it creates an OTel span when the scope starts,
// binds it to the node as the node's correlation handle, and ends it when
// the scope ends. Instrumentation code stays unaware of tracing; it only
// opens scopes.
type TraceBridge struct {
	config BridgeConfig

	mu   sync.Mutex
	subs []*hub.Subscription
}

// NewTraceBridge creates a bridge. Call Bind to attach it to scope
// identifiers and Close to detach.
func NewTraceBridge(config BridgeConfig) *TraceBridge {
	if config.Hub == nil {
		config.Hub = hub.Default()
	}
	if config.SpanManager == nil {
		config.SpanManager = NewSpanManager()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &TraceBridge{config: config}
}

// Bind subscribes the bridge to the lifecycle channels of each identifier.
// Binding the same identifier twice doubles the listeners; callers own
// dedup.
func (b *TraceBridge) Bind(identifiers ...string) error {
	for _, identifier := range identifiers {
		id := identifier

		startSub, err := b.config.Hub.On(
			coreapi.StartSpanChannel(id),
			func(args []any) (any, error) { return nil, b.onScopeStart(id, args) },
			hub.WithListenerName("otel-bridge-start."+id),
			hub.WithArity(1),
		)
		if err != nil {
			return fmt.Errorf("bind %q: %w", id, err)
		}

		endSub, err := b.config.Hub.On(
			coreapi.EndedChannel(id),
			func(args []any) (any, error) { return nil, b.onScopeEnd(id, args) },
			hub.WithListenerName("otel-bridge-end."+id),
			hub.WithArity(1),
		)
		if err != nil {
			startSub.Remove()
			return fmt.Errorf("bind %q: %w", id, err)
		}

		b.mu.Lock()
		b.subs = append(b.subs, startSub, endSub)
		b.mu.Unlock()

		LogBridgeBound(b.config.Logger, id)
	}
	return nil
}

// Close removes every subscription the bridge holds. Spans of scopes that
// are still active end when their scopes end only if the subscriptions are
// intact, so Close belongs in shutdown, after in-flight work drains.
func (b *TraceBridge) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Remove()
	}
}

// onScopeStart creates a span for the node and binds it.
func (b *TraceBridge) onScopeStart(identifier string, args []any) error {
	node, err := bridgeNode(args)
	if err != nil {
		return err
	}

	// A node entered with an externally bound span keeps it; the bridge
	// only fills the gap.
	if _, bound := node.BoundSpan(); bound {
		return nil
	}

	ctx := context.Background()
	if parent := nearestSpan(node.Parent()); parent != nil {
		ctx = trace.ContextWithSpan(ctx, parent)
	}

	_, span := b.config.SpanManager.StartScopeSpan(ctx, identifier, node.ID())
	node.SetSpan(span)
	node.SetItem(bridgeStartItem, time.Now())
	return nil
}

// onScopeEnd ends the node's span and records the scope lifetime.
func (b *TraceBridge) onScopeEnd(identifier string, args []any) error {
	node, err := bridgeNode(args)
	if err != nil {
		return err
	}

	var scopeErr error
	if v := node.GetLocalItem(BridgeErrorItem); v != nil {
		if e, ok := v.(error); ok {
			scopeErr = e
		}
	}

	if raw, bound := node.BoundSpan(); bound {
		if span, ok := raw.(trace.Span); ok {
			b.config.SpanManager.EndSpanWithError(span, scopeErr)
		}
	}

	if b.config.Metrics != nil {
		if started, ok := node.GetLocalItem(bridgeStartItem).(time.Time); ok {
			b.config.Metrics.RecordScope(context.Background(), identifier,
				time.Since(started), scopeErr == nil)
		}
	}
	return nil
}

// bridgeNode extracts the dispatched node from listener args.
func bridgeNode(args []any) (*coreapi.ExecutionContext, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("lifecycle dispatch carried %d args, want 1", len(args))
	}
	node, ok := args[0].(*coreapi.ExecutionContext)
	if !ok {
		return nil, fmt.Errorf("lifecycle dispatch carried %T, want *coreapi.ExecutionContext", args[0])
	}
	return node, nil
}

// nearestSpan walks the chain from node upward for a bound OTel span.
func nearestSpan(node *coreapi.ExecutionContext) trace.Span {
	for ; node != nil; node = node.Parent() {
		if raw, bound := node.BoundSpan(); bound {
			if span, ok := raw.(trace.Span); ok {
				return span
			}
		}
	}
	return nil
}
