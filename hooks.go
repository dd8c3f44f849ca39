// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"github.com/canopyui/canopy/slot"
	"github.com/cockroachdb/errors"
)

// Context is the render context passed to a component body. It is valid
// only for the duration of one Render call; component bodies must not
// retain it.
type Context struct {
	vt    *VirtualTree
	scope *Scope
}

// Props returns the props the parent passed to this component instance.
func (cx *Context) Props() any { return cx.scope.props }

// Scope returns the identity of the rendering scope.
func (cx *Context) Scope() ScopeID { return cx.scope.id }

// Logger returns the tree's logger.
func (cx *Context) Logger() Logger { return cx.vt.opts.Logger }

// UseSlot returns the hook slot at the scope's current cursor position,
// allocating it with init on the first render. Hook slots must be read in
// the same order on every render of a scope; allocating past the count
// recorded on the first render fails loudly.
func (cx *Context) UseSlot(init func() any) slot.Handle {
	s := cx.scope
	if s.hookCursor < s.owner.Len() {
		h := s.owner.Handle(s.hookCursor)
		s.hookCursor++
		return h
	}
	if s.hookCount >= 0 {
		panic(errors.Mark(errors.AssertionFailedf(
			"canopy: scope %d (%s) allocated hook slot %d, first render allocated %d",
			s.id, componentName(s.component), s.hookCursor, s.hookCount), ErrHookOrder))
	}
	h := s.owner.Alloc(init())
	s.hookCursor++
	return h
}

// ReadSlot returns the value stored under h. Reading through a stale handle
// panics: it is an invariant violation, not a recoverable condition.
func (cx *Context) ReadSlot(h slot.Handle) any {
	v, err := cx.vt.store.Get(h)
	if err != nil {
		panic(err)
	}
	return v
}

// WriteSlot replaces the value stored under h and marks the scope dirty.
func (cx *Context) WriteSlot(h slot.Handle, v any) {
	if err := cx.vt.store.Set(h, v); err != nil {
		panic(err)
	}
	cx.vt.MarkDirty(cx.scope.id)
}

// Spawn registers asynchronous work owned by the rendering scope. The work
// starts immediately on its own goroutine; see TaskFunc for the threading
// contract. Destroying the scope cancels the task.
func (cx *Context) Spawn(tier Priority, fn TaskFunc) TaskID {
	return cx.vt.spawnTask(cx.scope, tier, fn)
}

// Throw aborts the current render with err; the subtree renders its nearest
// configured fallback.
func (cx *Context) Throw(err error) {
	panic(errors.Wrap(err, "canopy: thrown"))
}

// UseState is the canonical typed hook over UseSlot: persistent state plus
// a setter that marks the scope dirty. The setter must be called on the
// scheduler goroutine (from an event handler or a posted task effect); a
// setter called after the owning scope was destroyed is a no-op.
func UseState[T any](cx *Context, init func() T) (T, func(T)) {
	h := cx.UseSlot(func() any { return init() })
	vt, sid := cx.vt, cx.scope.id
	v := cx.ReadSlot(h).(T)
	set := func(nv T) {
		if err := vt.store.Set(h, nv); err != nil {
			if errors.Is(err, slot.ErrStaleHandle) {
				return
			}
			panic(err)
		}
		vt.MarkDirty(sid)
	}
	return v, set
}
