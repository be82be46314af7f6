package coreapi

import "errors"

// Sentinel errors for execution-context misuse. They signal caller bugs and
// are returned, never repaired silently.
var (
	// ErrParentOverwrite indicates an attempt to re-parent a node whose
	// parent is already set.
	ErrParentOverwrite = errors.New("context parent cannot be overwritten")

	// ErrKeyConflict indicates SetSafe found the key already present in the
	// node's local data.
	ErrKeyConflict = errors.New("context key already present")

	// ErrAlreadyEntered indicates Enter was called on a node that is not in
	// the Created state.
	ErrAlreadyEntered = errors.New("context already entered")
)
