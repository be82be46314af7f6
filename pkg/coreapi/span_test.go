package coreapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/coreapi/pkg/coreapi/hub"
)

func TestSetSpanAndBoundSpan(t *testing.T) {
	node := New("op")

	_, ok := node.BoundSpan()
	assert.False(t, ok)

	node.SetSpan("span-1")
	span, ok := node.BoundSpan()
	require.True(t, ok)
	assert.Equal(t, "span-1", span)
	assert.Equal(t, "span-1", node.Span())
}

func TestSpanMirror(t *testing.T) {
	node := New("op", WithData(map[string]any{SpanKeyItem: "op.span"}))
	node.SetSpan("span-1")

	assert.Equal(t, "span-1", node.GetLocalItem("op.span"), "span mirrored under the declared key")

	// Descendants resolve the mirror through the chain.
	child := New("child", WithParent(node))
	assert.Equal(t, "span-1", child.GetItem("op.span"))
}

func TestSpanMirrorAtConstruction(t *testing.T) {
	node := New("op",
		WithData(map[string]any{SpanKeyItem: "op.span"}),
		WithSpan("external"),
	)
	assert.Equal(t, "external", node.GetLocalItem("op.span"))
}

func TestSpanResolverFallback(t *testing.T) {
	defer SetSpanResolver(nil)

	node := New("op")
	assert.Nil(t, node.Span(), "no span and no resolver yields nil")

	SetSpanResolver(func() any { return "resolved" })
	assert.Equal(t, "resolved", node.Span())

	node.SetSpan("bound")
	assert.Equal(t, "bound", node.Span(), "bound span wins over the resolver")
}

func TestSpanResolverResultCached(t *testing.T) {
	defer SetSpanResolver(nil)

	var calls int
	SetSpanResolver(func() any {
		calls++
		return "resolved"
	})

	node := New("op", WithData(map[string]any{SpanKeyItem: "op.span"}))
	assert.Equal(t, "resolved", node.Span())
	assert.Equal(t, "resolved", node.Span())
	assert.Equal(t, 1, calls, "resolver consulted once, then the node holds the span")

	span, bound := node.BoundSpan()
	assert.True(t, bound)
	assert.Equal(t, "resolved", span)
	assert.Equal(t, "resolved", node.GetLocalItem("op.span"), "cached fallback mirrors like SetSpan")

	// A later resolver change cannot retarget the node.
	SetSpanResolver(func() any {
		calls++
		return "other"
	})
	assert.Equal(t, "resolved", node.Span())
	assert.Equal(t, 1, calls)
}

func TestSpanResolverNilResultNotCached(t *testing.T) {
	defer SetSpanResolver(nil)

	SetSpanResolver(func() any { return nil })

	node := New("op")
	assert.Nil(t, node.Span())
	_, bound := node.BoundSpan()
	assert.False(t, bound, "a nil resolution leaves the node unbound")

	SetSpanResolver(func() any { return "late" })
	assert.Equal(t, "late", node.Span(), "the node stays open to a later resolution")
}

func TestActiveSpan(t *testing.T) {
	ctx := WithStrand(context.Background())
	h := hub.New(hub.Config{})

	assert.Nil(t, ActiveSpan(ctx))

	outer := New("outer", WithParent(Current(ctx)), WithHub(h))
	require.NoError(t, outer.Enter(ctx))
	outer.SetSpan("outer-span")

	inner := New("inner", WithParent(outer), WithHub(h))
	require.NoError(t, inner.Enter(ctx))

	assert.Equal(t, "outer-span", ActiveSpan(ctx), "nearest bound span up the chain")

	inner.SetSpan("inner-span")
	assert.Equal(t, "inner-span", ActiveSpan(ctx))

	inner.Exit(nil)
	outer.Exit(nil)
}

func TestActiveRootSpan(t *testing.T) {
	defer SetRootSpanResolver(nil)
	ctx := WithStrand(context.Background())

	assert.Nil(t, ActiveRootSpan(ctx))

	SetRootSpanResolver(func() any { return "resolver-root" })
	assert.Equal(t, "resolver-root", ActiveRootSpan(ctx))

	CurrentRoot(ctx).SetSpan("bound-root")
	assert.Equal(t, "bound-root", ActiveRootSpan(ctx), "bound root span wins over the resolver")
}
