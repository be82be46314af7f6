package coreapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Lifecycle channel names. Every identifier gets its own trio of channels so
// product listeners subscribe per scope kind, not globally.

// StartedChannel returns the channel dispatched when a node with the given
// identifier is entered.
func StartedChannel(identifier string) string {
	return "context.started." + identifier
}

// StartSpanChannel returns the channel dispatched immediately after
// StartedChannel. Listeners that create and bind spans subscribe here so
// plain started listeners observe the node before any span exists.
func StartSpanChannel(identifier string) string {
	return "context.started.start_span." + identifier
}

// EndedChannel returns the channel dispatched when a node with the given
// identifier is exited.
func EndedChannel(identifier string) string {
	return "context.ended." + identifier
}

// Enter activates the node: it becomes the strand's current node (unless an
// external span was bound at construction), then the started channels are
// dispatched synchronously with the node as sole argument.
//
// Returns ErrAlreadyEntered if the node is not in the Created state.
func (c *ExecutionContext) Enter(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateCreated {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: node %q is %s", ErrAlreadyEntered, c.identifier, state)
	}
	c.state = StateActive
	external := c.spanGiven
	c.mu.Unlock()

	if external {
		warnSpanOverride(c)
	} else {
		slot := slotFrom(ctx)
		slot.mu.Lock()
		c.slot = slot
		c.prev = slot.current
		slot.current = c
		slot.mu.Unlock()
	}

	h := c.dispatchHub()
	h.Dispatch(StartedChannel(c.identifier), c)
	h.Dispatch(StartSpanChannel(c.identifier), c)
	return nil
}

// Exit ends the node: the ended channel is dispatched unconditionally, the
// strand's previous current node is restored, and the handled verdict for
// err is returned. A nil err is handled; a non-nil err is handled when it
// matches one of the node's suppressed kinds via errors.Is.
//
// Only an Active node can exit: a node that was never entered, or one that
// already ended, logs and returns false without dispatching, so listeners
// see exactly one end per started scope. A failure to restore the previous
// current node is logged, never raised; the scope is ending either way.
func (c *ExecutionContext) Exit(err error) bool {
	c.mu.Lock()
	if c.state != StateActive {
		state := c.state
		c.mu.Unlock()
		c.log().Warn("exit of context node that is not active",
			slog.String("identifier", c.identifier),
			slog.String("id", c.id),
			slog.String("state", state.String()),
		)
		return false
	}
	c.state = StateEnded
	external := c.spanGiven
	suppressed := make([]error, len(c.suppressed))
	copy(suppressed, c.suppressed)
	c.mu.Unlock()

	c.dispatchHub().Dispatch(EndedChannel(c.identifier), c)

	forgetSpanOverride(c)

	if !external && c.slot != nil {
		c.slot.mu.Lock()
		if c.slot.current == c {
			c.slot.current = c.prev
		} else {
			c.log().Debug("current-node restore skipped, scopes exited out of order",
				slog.String("identifier", c.identifier),
				slog.String("id", c.id),
			)
		}
		c.slot.mu.Unlock()
	}

	if err == nil {
		return true
	}
	for _, kind := range suppressed {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Run executes fn inside a new scope: a node with the given identifier and
// seed data is created as a child of the strand's current node, entered,
// and exited when fn returns. A panic inside fn is converted to an error;
// the scope still exits and the ended channel still fires.
//
// Returns nil when fn succeeds or its error matches a suppressed kind,
// otherwise fn's error.
func Run(ctx context.Context, identifier string, data map[string]any, fn func(ctx context.Context, node *ExecutionContext) error) error {
	node := New(identifier, WithParent(Current(ctx)), WithData(data))
	if err := node.Enter(ctx); err != nil {
		return err
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("scope %q panicked: %v", identifier, r)
			}
		}()
		err = fn(ctx, node)
	}()

	if node.Exit(err) {
		return nil
	}
	return err
}
