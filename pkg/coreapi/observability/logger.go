// Package observability provides production-grade observability for the
// correlation core: structured logging, metrics, and distributed tracing,
// plus a bridge that turns context lifecycle events into OpenTelemetry
// spans.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds correlation context to a logger.
// Returns a new logger with scope identifier and node id fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "http.request", node.ID())
//	enriched.Info("handling") // includes scope, node_id
func EnrichLogger(logger *slog.Logger, identifier, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("scope", identifier),
		slog.String("node_id", nodeID),
	)
}

// LogScopeStart logs a scope entering.
func LogScopeStart(logger *slog.Logger, identifier, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("scope started",
		slog.String("scope", identifier),
		slog.String("node_id", nodeID),
	)
}

// LogScopeEnd logs a scope exiting.
func LogScopeEnd(logger *slog.Logger, identifier, nodeID string, handled bool, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("scope ended",
		slog.String("scope", identifier),
		slog.String("node_id", nodeID),
		slog.Bool("handled", handled),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDispatch logs a hub dispatch.
func LogDispatch(logger *slog.Logger, channel string, listeners int, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("dispatch completed",
		slog.String("channel", channel),
		slog.Int("listeners", listeners),
		slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
	)
}

// LogListenerFailure logs a contained listener failure (non-fatal).
func LogListenerFailure(logger *slog.Logger, channel, listener string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("listener failed",
		slog.String("channel", channel),
		slog.String("listener", listener),
		slog.String("error", err.Error()),
	)
}

// LogBridgeBound logs the trace bridge attaching to a scope identifier.
func LogBridgeBound(logger *slog.Logger, identifier string) {
	if logger == nil {
		return
	}
	logger.Debug("trace bridge bound",
		slog.String("scope", identifier),
	)
}
