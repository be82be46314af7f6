package coreapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupWalksParentChain(t *testing.T) {
	root := New(RootIdentifier, WithData(map[string]any{"shared": "from-root"}))
	mid := New("mid", WithParent(root))
	leaf := New("leaf", WithParent(mid))

	value, ok := leaf.LookupItem("shared")
	require.True(t, ok)
	assert.Equal(t, "from-root", value)
	assert.Equal(t, "from-root", leaf.GetItem("shared"))

	// Local read does not inherit.
	assert.Nil(t, leaf.GetLocalItem("shared"))
	_, ok = leaf.LookupLocalItem("shared")
	assert.False(t, ok)
}

func TestNearestAncestorWins(t *testing.T) {
	root := New(RootIdentifier, WithData(map[string]any{"key": "root"}))
	mid := New("mid", WithParent(root), WithData(map[string]any{"key": "mid"}))
	leaf := New("leaf", WithParent(mid))

	assert.Equal(t, "mid", leaf.GetItem("key"))
}

func TestNilValueIsPresent(t *testing.T) {
	parent := New("parent")
	parent.SetItem("tombstone", nil)
	child := New("child", WithParent(parent), WithData(map[string]any{"tombstone": "child-value"}))

	// The child's lookup must stop at the parent's nil, not keep climbing.
	grand := New("grand", WithParent(child))
	child.DiscardLocalItem("tombstone")

	value, ok := grand.LookupItem("tombstone")
	require.True(t, ok)
	assert.Nil(t, value)

	_, ok = grand.LookupItem("never-set")
	assert.False(t, ok)
	assert.Nil(t, grand.GetItem("never-set"))
}

func TestWritesAreLocalOnly(t *testing.T) {
	parent := New("parent", WithData(map[string]any{"key": "parent"}))
	child := New("child", WithParent(parent))
	sibling := New("sibling", WithParent(parent))

	child.SetItem("key", "child")

	assert.Equal(t, "child", child.GetItem("key"))
	assert.Equal(t, "parent", parent.GetItem("key"))
	assert.Equal(t, "parent", sibling.GetItem("key"), "a sibling must not observe the shadow")
}

func TestSetItemsAndGetItems(t *testing.T) {
	parent := New("parent", WithData(map[string]any{"a": 1}))
	child := New("child", WithParent(parent))

	child.SetItems(map[string]any{"b": 2, "c": 3})

	assert.Equal(t, []any{1, 2, 3, nil}, child.GetItems("a", "b", "c", "missing"))
}

func TestSetSafe(t *testing.T) {
	parent := New("parent", WithData(map[string]any{"inherited": true}))
	child := New("child", WithParent(parent))

	require.NoError(t, child.SetSafe("fresh", 1))
	err := child.SetSafe("fresh", 2)
	require.ErrorIs(t, err, ErrKeyConflict)
	assert.Equal(t, 1, child.GetItem("fresh"), "failed SetSafe must not overwrite")

	// Only local presence conflicts; shadowing an ancestor key is allowed.
	require.NoError(t, child.SetSafe("inherited", false))
	assert.Equal(t, false, child.GetItem("inherited"))
	assert.Equal(t, true, parent.GetItem("inherited"))
}

func TestDiscardItemClimbs(t *testing.T) {
	parent := New("parent", WithData(map[string]any{"key": "parent"}))
	child := New("child", WithParent(parent))
	sibling := New("sibling", WithParent(parent))

	// The child holds no local copy, so the discard reaches the parent and
	// the sibling loses visibility too.
	child.DiscardItem("key")

	_, ok := parent.LookupLocalItem("key")
	assert.False(t, ok)
	_, ok = sibling.LookupItem("key")
	assert.False(t, ok)
}

func TestDiscardItemStopsAtNearestHolder(t *testing.T) {
	parent := New("parent", WithData(map[string]any{"key": "parent"}))
	child := New("child", WithParent(parent), WithData(map[string]any{"key": "child"}))

	child.DiscardItem("key")

	_, ok := child.LookupLocalItem("key")
	assert.False(t, ok)
	assert.Equal(t, "parent", parent.GetLocalItem("key"), "only the nearest holder is mutated")
	assert.Equal(t, "parent", child.GetItem("key"), "parent value uncovered by the discard")
}

func TestDiscardLocalItem(t *testing.T) {
	parent := New("parent", WithData(map[string]any{"key": "parent"}))
	child := New("child", WithParent(parent), WithData(map[string]any{"key": "child"}))

	child.DiscardLocalItem("key")
	assert.Equal(t, "parent", child.GetItem("key"))

	// Absent key is a no-op, ancestors untouched.
	child.DiscardLocalItem("key")
	assert.Equal(t, "parent", parent.GetLocalItem("key"))
}

func TestRoot(t *testing.T) {
	root := New(RootIdentifier)
	mid := New("mid", WithParent(root))
	leaf := New("leaf", WithParent(mid))

	assert.Same(t, root, leaf.Root())
	assert.Same(t, root, root.Root())

	// An orphan chain tops out at its highest ancestor.
	top := New("top")
	under := New("under", WithParent(top))
	assert.Same(t, top, under.Root())

	// The root identifier short-circuits even with a parent wired in.
	oddRoot := New(RootIdentifier, WithParent(top))
	assert.Same(t, oddRoot, oddRoot.Root())
}

func TestSetParentOnce(t *testing.T) {
	a := New("a")
	b := New("b")
	child := New("child")

	require.NoError(t, child.SetParent(a))
	assert.Same(t, a, child.Parent())

	err := child.SetParent(b)
	require.ErrorIs(t, err, ErrParentOverwrite)
	assert.Same(t, a, child.Parent())

	// WithParent counts as the one assignment.
	viaOption := New("child2", WithParent(a))
	require.ErrorIs(t, viaOption.SetParent(b), ErrParentOverwrite)
}

func TestNodeIdentity(t *testing.T) {
	a := New("same")
	b := New("same")

	assert.Equal(t, "same", a.Identifier())
	assert.Equal(t, "same", b.Identifier())
	assert.NotEqual(t, a.ID(), b.ID(), "identifier recurs, identity must not")
	assert.NotEmpty(t, a.ID())
	assert.Equal(t, StateCreated, a.State())
}
