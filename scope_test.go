// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"testing"

	"github.com/canopyui/canopy/slot"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestHookOrderViolationPanics(t *testing.T) {
	tmpl := NewTemplate("hooks.order", El("div", DynamicText(0)))
	extra := false
	c := ComponentFunc(func(cx *Context) *VNode {
		_, _ = UseState(cx, func() int { return 0 })
		if extra {
			_, _ = UseState(cx, func() int { return 0 })
		}
		n := NewVNode(tmpl)
		n.Texts[0] = "x"
		return n
	})

	vt := New(c, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))

	// Reading more hook slots than the first render did is a programmer
	// error that must not be contained as a component failure.
	extra = true
	vt.MarkDirty(vt.Root())
	require.Panics(t, func() { _ = vt.RenderImmediate(&sink) })
}

func TestStaleHandleAfterScopeDestroyed(t *testing.T) {
	childTmpl := NewTemplate("hooks.child", El("span", DynamicText(0)))
	parentTmpl := NewTemplate("hooks.parent", El("div", Dynamic(0)))

	var h slot.Handle
	child := ComponentFunc(func(cx *Context) *VNode {
		h = cx.UseSlot(func() any { return 42 })
		n := NewVNode(childTmpl)
		n.Texts[0] = "child"
		return n
	})
	var setShow func(bool)
	parent := ComponentFunc(func(cx *Context) *VNode {
		show, set := UseState(cx, func() bool { return true })
		setShow = set
		n := NewVNode(parentTmpl)
		if show {
			n.Dynamic[0] = ComponentNode{Component: child}
		} else {
			n.Dynamic[0] = Absent{}
		}
		return n
	})

	vt := New(parent, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))
	require.True(t, h.Valid())
	v, err := vt.store.Get(h)
	require.NoError(t, err)
	require.Equal(t, 42, v)

	setShow(false)
	require.NoError(t, vt.RenderImmediate(&sink))
	_, err = vt.store.Get(h)
	require.ErrorIs(t, err, slot.ErrStaleHandle)
}

type panicBoundary struct {
	child Component
}

var boundaryTmpl = NewTemplate("boundary.frame", El("div", Dynamic(0)))
var fallbackTmpl = NewTemplate("boundary.fallback", El("div", DynamicText(0)))

func (b panicBoundary) Render(cx *Context) *VNode {
	n := NewVNode(boundaryTmpl)
	n.Dynamic[0] = ComponentNode{Component: b.child}
	return n
}

func (b panicBoundary) RenderFallback(err error) *VNode {
	n := NewVNode(fallbackTmpl)
	n.Texts[0] = "something went wrong"
	return n
}

func TestComponentPanicContainedAtBoundary(t *testing.T) {
	childTmpl := NewTemplate("boundary.child", El("span", DynamicText(0)))
	var setBroken func(bool)
	child := ComponentFunc(func(cx *Context) *VNode {
		broken, set := UseState(cx, func() bool { return false })
		setBroken = set
		if broken {
			panic("boom")
		}
		n := NewVNode(childTmpl)
		n.Texts[0] = "fine"
		return n
	})

	var panics []ComponentPanicInfo
	opts := &Options{
		EventListener: &EventListener{
			ComponentPanic: func(info ComponentPanicInfo) { panics = append(panics, info) },
		},
	}
	vt := New(panicBoundary{child: child}, nil, opts)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))
	sink.Take()

	setBroken(true)
	require.NoError(t, vt.RenderImmediate(&sink))
	require.Len(t, panics, 1)
	require.ErrorContains(t, panics[0].Err, "boom")

	ms := sink.Take()
	require.NotEmpty(t, ms)
	var sawReplace, sawFallbackText bool
	for _, m := range ms {
		if _, ok := m.(ReplaceWith); ok {
			sawReplace = true
		}
		if st, ok := m.(SetText); ok && st.Value == "something went wrong" {
			sawFallbackText = true
		}
	}
	require.True(t, sawReplace)
	require.True(t, sawFallbackText)
}

func TestNilRenderMountsPlaceholder(t *testing.T) {
	c := ComponentFunc(func(cx *Context) *VNode { return nil })
	vt := New(c, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))
	requireMutations(t, &sink,
		`assign-id id=1`,
		`create-placeholder id=1`,
		`append-children parent=0 children=[1]`,
	)
}

func TestThrowRendersNearestFallback(t *testing.T) {
	child := ComponentFunc(func(cx *Context) *VNode {
		cx.Throw(errors.New("no data"))
		return nil
	})
	vt := New(panicBoundary{child: child}, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))

	var sawFallbackText bool
	for _, m := range sink.Take() {
		if st, ok := m.(SetText); ok && st.Value == "something went wrong" {
			sawFallbackText = true
		}
	}
	require.True(t, sawFallbackText)
}

func TestOptionsFallbackWhenNoBoundary(t *testing.T) {
	fbTmpl := NewTemplate("fallback.opts", El("div", DynamicText(0)))
	c := ComponentFunc(func(cx *Context) *VNode {
		panic("broken from the start")
	})
	opts := &Options{
		Fallback: func(err error) *VNode {
			n := NewVNode(fbTmpl)
			n.Texts[0] = "tree fallback"
			return n
		},
	}
	vt := New(c, nil, opts)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))

	var sawFallbackText bool
	for _, m := range sink.Take() {
		if st, ok := m.(SetText); ok && st.Value == "tree fallback" {
			sawFallbackText = true
		}
	}
	require.True(t, sawFallbackText)
}
