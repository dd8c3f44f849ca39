// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"context"
	"testing"
	"time"

	"github.com/canopyui/canopy/internal/base"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestDirtyScopesRenderInHeightOrder(t *testing.T) {
	childTmpl := NewTemplate("order.child", El("span", DynamicText(0)))
	parentTmpl := NewTemplate("order.parent", El("div", Dynamic(0)))

	var renders []string
	var childID ScopeID
	child := ComponentFunc(func(cx *Context) *VNode {
		childID = cx.Scope()
		renders = append(renders, "child")
		n := NewVNode(childTmpl)
		n.Texts[0] = "c"
		return n
	})
	parent := ComponentFunc(func(cx *Context) *VNode {
		renders = append(renders, "parent")
		n := NewVNode(parentTmpl)
		n.Dynamic[0] = ComponentNode{Component: child}
		return n
	})

	vt := New(parent, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))
	renders = nil

	// Mark the child first; the parent must still render first, and the
	// child exactly once (through the parent's diff, not the queue entry).
	vt.MarkDirty(childID)
	vt.MarkDirty(vt.Root())
	require.NoError(t, vt.RenderImmediate(&sink))
	require.Equal(t, []string{"parent", "child"}, renders)
}

func TestImmediateEffectsRunBeforeBackground(t *testing.T) {
	tmpl := NewTemplate("effects", El("div", DynamicText(0)))
	var ran []string
	posted := make(chan struct{}, 2)
	c := ComponentFunc(func(cx *Context) *VNode {
		n := NewVNode(tmpl)
		n.Texts[0] = "x"
		return n
	})

	vt := New(c, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))

	cx := &Context{vt: vt, scope: vt.mustScope(vt.Root())}
	cx.Spawn(PriorityBackground, func(tc *TaskContext) error {
		if !tc.Post(func() { ran = append(ran, "background") }) {
			t.Error("background post rejected")
		}
		posted <- struct{}{}
		return nil
	})
	cx.Spawn(PriorityImmediate, func(tc *TaskContext) error {
		if !tc.Post(func() { ran = append(ran, "immediate") }) {
			t.Error("immediate post rejected")
		}
		posted <- struct{}{}
		return nil
	})
	<-posted
	<-posted

	require.NoError(t, vt.RenderImmediate(&sink))
	require.Equal(t, []string{"immediate", "background"}, ran)
}

func TestBackgroundEffectsArePaced(t *testing.T) {
	tmpl := NewTemplate("paced", El("div", DynamicText(0)))
	c := ComponentFunc(func(cx *Context) *VNode {
		n := NewVNode(tmpl)
		n.Texts[0] = "x"
		return n
	})

	// Rate 2 gives the pacer an initial burst of two tokens; refills
	// within the test are negligible.
	vt := New(c, nil, &Options{BackgroundWorkRate: 2})
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))

	var ran []string
	posted := make(chan struct{}, 2)
	cx := &Context{vt: vt, scope: vt.mustScope(vt.Root())}
	cx.Spawn(PriorityBackground, func(tc *TaskContext) error {
		for _, name := range []string{"bg-1", "bg-2", "bg-3"} {
			if !tc.Post(func() { ran = append(ran, name) }) {
				t.Error("background post rejected")
			}
		}
		posted <- struct{}{}
		return nil
	})
	cx.Spawn(PriorityImmediate, func(tc *TaskContext) error {
		if !tc.Post(func() { ran = append(ran, "imm") }) {
			t.Error("immediate post rejected")
		}
		posted <- struct{}{}
		return nil
	})
	<-posted
	<-posted

	// The immediate effect is not paced. The background tier runs only as
	// far as the burst allows; the excess stays queued.
	require.NoError(t, vt.RenderImmediate(&sink))
	require.Equal(t, []string{"imm", "bg-1", "bg-2"}, ran)
	require.True(t, vt.hasWork())

	// Refill past what is queued: the carried-over effect runs, and the
	// token taken for the then-empty queue is put back.
	vt.bgPacer.Adjust(2)
	require.NoError(t, vt.RenderImmediate(&sink))
	require.Equal(t, []string{"imm", "bg-1", "bg-2", "bg-3"}, ran)

	ok, _ := vt.bgPacer.TryToFulfill(1)
	require.True(t, ok)
	ok, _ = vt.bgPacer.TryToFulfill(1)
	require.False(t, ok)
}

func TestCancelledTaskEffectsAreNoOps(t *testing.T) {
	childTmpl := NewTemplate("cancel.child", El("span", DynamicText(0)))
	parentTmpl := NewTemplate("cancel.parent", El("div", Dynamic(0)))

	start := make(chan struct{})
	postResult := make(chan bool, 1)
	taskDone := make(chan TaskInfo, 1)
	effectRan := false

	child := ComponentFunc(func(cx *Context) *VNode {
		_, _ = UseState(cx, func() bool {
			cx.Spawn(PriorityImmediate, func(tc *TaskContext) error {
				<-start
				postResult <- tc.Post(func() { effectRan = true })
				return nil
			})
			return true
		})
		n := NewVNode(childTmpl)
		n.Texts[0] = "c"
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

	opts := &Options{
		EventListener: &EventListener{
			TaskDone: func(info TaskInfo) { taskDone <- info },
		},
	}
	vt := New(parent, nil, opts)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))

	// Destroy the child scope, then let its task attempt to post.
	setShow(false)
	require.NoError(t, vt.RenderImmediate(&sink))
	close(start)

	require.False(t, <-postResult)
	info := <-taskDone
	require.True(t, info.Cancelled)
	require.NoError(t, vt.RenderImmediate(&sink))
	require.False(t, effectRan)
	require.Equal(t, int64(1), vt.Metrics().Tasks.Cancelled)
}

func TestFailedTaskRendersFallback(t *testing.T) {
	childTmpl := NewTemplate("taskfail.child", El("span", DynamicText(0)))
	taskDone := make(chan TaskInfo, 1)
	child := ComponentFunc(func(cx *Context) *VNode {
		_, _ = UseState(cx, func() bool {
			cx.Spawn(PriorityImmediate, func(tc *TaskContext) error {
				return errors.New("fetch failed")
			})
			return true
		})
		n := NewVNode(childTmpl)
		n.Texts[0] = "loading"
		return n
	})

	opts := &Options{
		EventListener: &EventListener{
			TaskDone: func(info TaskInfo) { taskDone <- info },
		},
	}
	vt := New(panicBoundary{child: child}, nil, opts)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))
	sink.Take()

	info := <-taskDone
	require.ErrorContains(t, info.Err, "fetch failed")

	require.NoError(t, vt.RenderImmediate(&sink))
	var sawFallbackText bool
	for _, m := range sink.Take() {
		if st, ok := m.(SetText); ok && st.Value == "something went wrong" {
			sawFallbackText = true
		}
	}
	require.True(t, sawFallbackText)
	require.Equal(t, int64(1), vt.Metrics().Tasks.Failed)
}

func TestWaitForWork(t *testing.T) {
	tmpl := NewTemplate("wait", ElAttrs("div", []TemplateAttribute{DynamicAttr("click", 0)}))
	c := ComponentFunc(func(cx *Context) *VNode {
		n := NewVNode(tmpl)
		n.Attrs[0] = HandlerAttr(func(*Event) {})
		return n
	})

	vt := New(c, nil, nil)
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, vt.WaitForWork(ctx), context.DeadlineExceeded)

	go func() {
		time.Sleep(time.Millisecond)
		_ = vt.EnqueueEvent(1, "click", nil)
	}()
	require.NoError(t, vt.WaitForWork(context.Background()))
}

func TestEventQueueBound(t *testing.T) {
	tmpl := NewTemplate("bound", ElAttrs("div", []TemplateAttribute{DynamicAttr("click", 0)}))
	c := ComponentFunc(func(cx *Context) *VNode {
		n := NewVNode(tmpl)
		n.Attrs[0] = HandlerAttr(func(*Event) {})
		return n
	})

	// The third enqueue is expected to drop; keep the log quiet.
	vt := New(c, nil, &Options{MaxQueuedEvents: 2, Logger: base.NoopLogger{}})
	var sink RecordingSink
	require.NoError(t, vt.Mount(&sink))

	require.NoError(t, vt.EnqueueEvent(1, "click", nil))
	require.NoError(t, vt.EnqueueEvent(1, "click", nil))
	require.Error(t, vt.EnqueueEvent(1, "click", nil))
	m := vt.Metrics()
	require.Equal(t, int64(2), m.Events.Enqueued)
	require.Equal(t, int64(1), m.Events.Dropped)
}
