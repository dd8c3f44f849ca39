// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import "reflect"

// Component is the capability interface component types implement. Render
// must be a pure function of the props (read through cx.Props()) and the
// scope's hook slots; it may register tasks and event handlers but must not
// hold onto slot handles belonging to another scope.
type Component interface {
	Render(cx *Context) *VNode
}

// ComponentFunc adapts a plain function to Component.
type ComponentFunc func(cx *Context) *VNode

// Render implements Component.
func (f ComponentFunc) Render(cx *Context) *VNode { return f(cx) }

// FallbackRenderer is implemented by components that provide fallback
// content for failures in their subtree. When a component body or task
// fails, the nearest ancestor (including the failing scope itself) whose
// component implements FallbackRenderer supplies the replacement node.
type FallbackRenderer interface {
	RenderFallback(err error) *VNode
}

// componentIdentity returns a comparable identity used to decide whether a
// re-rendered component node refers to the same component type and may
// therefore reuse its scope. Function components compare by function
// pointer; struct components compare by concrete type.
func componentIdentity(c Component) any {
	if f, ok := c.(ComponentFunc); ok {
		return reflect.ValueOf(f).Pointer()
	}
	return reflect.TypeOf(c)
}

// samePropsValue reports whether old and new props are known-equal. Only
// comparable values short-circuit; everything else is treated as changed.
func samePropsValue(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
