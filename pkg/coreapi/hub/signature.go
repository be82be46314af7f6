package hub

import "fmt"

// Signature declares the argument shape a channel carries. Channel owners
// register signatures so listener registrations can be validated up front
// instead of failing mid-dispatch on a shape mismatch.
type Signature struct {
	// Arity is the number of arguments dispatched on the channel.
	Arity int

	// Description explains the channel's purpose and argument meaning.
	Description string
}

// RegisterSignature declares the argument shape for a channel.
// Re-registering replaces the previous signature; already-registered
// listeners are not re-validated.
func (h *Hub) RegisterSignature(channel string, sig Signature) {
	h.signatures.Register(channel, sig)
}

// SignatureFor returns the registered signature for a channel.
func (h *Hub) SignatureFor(channel string) (Signature, bool) {
	return h.signatures.Get(channel)
}

// checkSignature validates a listener's declared arity against the channel's
// registered signature, if either is present.
func (h *Hub) checkSignature(channel string, entry *listenerEntry) error {
	sig, ok := h.signatures.Get(channel)
	if !ok {
		return nil
	}

	if entry.arity < 0 {
		if h.config.StrictSignatures {
			return fmt.Errorf("%w: channel %q expects %d argument(s)",
				ErrArityUndeclared, channel, sig.Arity)
		}
		return nil
	}

	if entry.arity != sig.Arity {
		return fmt.Errorf("%w: channel %q expects %d argument(s), listener %q declares %d",
			ErrArityMismatch, channel, sig.Arity, entry.name, entry.arity)
	}
	return nil
}
