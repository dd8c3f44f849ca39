// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"sync"
	"testing"

	"github.com/canopyui/canopy/internal/base"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// requireMutations asserts the sink recorded exactly the given mutations,
// in order, and resets the sink.
func requireMutations(t *testing.T, sink *RecordingSink, want ...string) {
	t.Helper()
	var got []string
	for _, m := range sink.Take() {
		got = append(got, m.String())
	}
	require.Equal(t, want, got)
}

func TestMountEmitsCreationStream(t *testing.T) {
	tmpl := NewTemplate("mount.hello", El("div", El("span", DynamicText(0))))
	hello := ComponentFunc(func(cx *Context) *VNode {
		n := NewVNode(tmpl)
		n.Texts[0] = "hi"
		return n
	})

	vt := New(hello, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))
	requireMutations(t, &sink,
		`assign-id id=1`,
		`create-element id=1 tag=div`,
		`assign-id id=2`,
		`create-element id=2 tag=span`,
		`assign-id id=3`,
		`create-text id=3 value=""`,
		`set-text id=3 value="hi"`,
		`append-children parent=2 children=[3]`,
		`append-children parent=1 children=[2]`,
		`append-children parent=0 children=[1]`,
	)
	require.NoError(t, vt.Close())
}

func TestAttributeOnlyUpdate(t *testing.T) {
	tmpl := NewTemplate("attr.box",
		ElAttrs("div", []TemplateAttribute{DynamicAttr("class", 0)}))
	var setClass func(string)
	box := ComponentFunc(func(cx *Context) *VNode {
		class, set := UseState(cx, func() string { return "a" })
		setClass = set
		n := NewVNode(tmpl)
		n.Attrs[0] = TextAttr(class)
		return n
	})

	vt := New(box, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))
	requireMutations(t, &sink,
		`assign-id id=1`,
		`create-element id=1 tag=div`,
		`set-attribute id=1 name=class value="a"`,
		`append-children parent=0 children=[1]`,
	)

	setClass("b")
	require.NoError(t, vt.RenderImmediate(&sink))
	requireMutations(t, &sink,
		`set-attribute id=1 name=class value="b"`,
	)
}

func TestIdempotentRenderEmitsNothing(t *testing.T) {
	tmpl := NewTemplate("idem", El("div", DynamicText(0)))
	c := ComponentFunc(func(cx *Context) *VNode {
		n := NewVNode(tmpl)
		n.Texts[0] = "same"
		return n
	})

	vt := New(c, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))
	sink.Take()

	vt.MarkDirty(vt.Root())
	require.NoError(t, vt.RenderImmediate(&sink))
	require.Empty(t, sink.Take())
	require.Equal(t, int64(1), vt.Metrics().Flushes)
}

func TestTemplateSwapReplacesSubtree(t *testing.T) {
	tmplA := NewTemplate("swap.a", El("div", StaticText("a")))
	tmplB := NewTemplate("swap.b", El("p", StaticText("b")))
	var toggle func(bool)
	c := ComponentFunc(func(cx *Context) *VNode {
		useB, set := UseState(cx, func() bool { return false })
		toggle = set
		if useB {
			return NewVNode(tmplB)
		}
		return NewVNode(tmplA)
	})

	vt := New(c, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))
	sink.Take()

	toggle(true)
	require.NoError(t, vt.RenderImmediate(&sink))
	requireMutations(t, &sink,
		`assign-id id=3`,
		`create-element id=3 tag=p`,
		`assign-id id=4`,
		`create-text id=4 value="b"`,
		`append-children parent=3 children=[4]`,
		`replace-with id=1 ids=[3]`,
	)
	m := vt.Metrics()
	require.Equal(t, int64(2), m.Elements.Released)
	require.Equal(t, int64(2), m.Elements.Live)
}

func TestCloseReleasesEverything(t *testing.T) {
	tmpl := NewTemplate("close", El("div", DynamicText(0)))
	c := ComponentFunc(func(cx *Context) *VNode {
		n := NewVNode(tmpl)
		n.Texts[0] = "x"
		return n
	})

	vt := New(c, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))
	require.NoError(t, vt.Close())

	m := vt.Metrics()
	require.Equal(t, int64(0), m.Elements.Live)
	require.Equal(t, int64(0), m.Scopes.Live)
	require.ErrorIs(t, vt.Close(), ErrTreeClosed)
	require.ErrorIs(t, vt.RenderImmediate(&sink), ErrTreeClosed)
	require.ErrorIs(t, vt.EnqueueEvent(1, "click", nil), ErrTreeClosed)
}

// EnqueueEvent and TaskContext.Post are callable from any goroutine, so
// Close must be safe against both running concurrently. Run under -race.
func TestCloseConcurrentWithEnqueuers(t *testing.T) {
	tmpl := NewTemplate("close.concurrent", ElAttrs("div", []TemplateAttribute{DynamicAttr("click", 0)}))
	c := ComponentFunc(func(cx *Context) *VNode {
		n := NewVNode(tmpl)
		n.Attrs[0] = HandlerAttr(func(*Event) {})
		return n
	})

	// The queues fill up while Close is in flight; silence the drop logging.
	vt := New(c, nil, &Options{Logger: base.NoopLogger{}})
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			if err := vt.EnqueueEvent(1, "click", nil); errors.Is(err, ErrTreeClosed) {
				return
			}
		}
	}()

	started := make(chan struct{})
	cx := &Context{vt: vt, scope: vt.mustScope(vt.Root())}
	cx.Spawn(PriorityBackground, func(tc *TaskContext) error {
		defer wg.Done()
		close(started)
		for tc.Context().Err() == nil {
			tc.Post(func() {})
		}
		return nil
	})
	<-started

	require.NoError(t, vt.Close())
	wg.Wait()
	require.ErrorIs(t, vt.EnqueueEvent(1, "click", nil), ErrTreeClosed)
}
