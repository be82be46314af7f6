package hub

import "sync/atomic"

// defaultHub is the process-wide hub used by the package-level functions and
// by context lifecycle dispatch when no hub override is supplied.
var defaultHub atomic.Pointer[Hub]

func init() {
	defaultHub.Store(New(Config{}))
}

// Default returns the process-wide hub.
func Default() *Hub {
	return defaultHub.Load()
}

// SetDefault replaces the process-wide hub, typically during initialization
// after building a configured hub with ConfigFrom. Existing subscriptions on
// the previous hub are not carried over.
func SetDefault(h *Hub) {
	if h == nil {
		return
	}
	defaultHub.Store(h)
}

// On registers a listener on the process-wide hub.
func On(channel string, fn ListenerFunc, opts ...ListenerOption) (*Subscription, error) {
	return Default().On(channel, fn, opts...)
}

// Dispatch fans out on the process-wide hub.
func Dispatch(channel string, args ...any) []any {
	return Default().Dispatch(channel, args...)
}

// DispatchWithResults fans out on the process-wide hub, returning per-listener results.
func DispatchWithResults(channel string, args ...any) *Results {
	return Default().DispatchWithResults(channel, args...)
}

// HasListeners reports whether the process-wide hub has listeners for channel.
func HasListeners(channel string) bool {
	return Default().HasListeners(channel)
}

// RegisterSignature declares a channel's argument shape on the process-wide hub.
func RegisterSignature(channel string, sig Signature) {
	Default().RegisterSignature(channel, sig)
}

// Reset clears the process-wide hub's listener registry.
// Intended for test isolation only.
func Reset() {
	Default().Reset()
}
