// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

// Handler is an event handler registered through a handler-valued dynamic
// attribute. Handlers run synchronously on the scheduler goroutine during
// event dispatch; state writes they perform mark scopes dirty for the next
// render pass.
type Handler func(ev *Event)

// Event is an external input event routed up the scope tree. The payload is
// opaque to the core and forwarded to handlers untouched.
type Event struct {
	Name    string
	Target  ElementID
	Payload any

	consumed bool
}

// StopPropagation marks the event consumed; no further ancestor handlers
// are invoked.
func (e *Event) StopPropagation() { e.consumed = true }

// Consumed reports whether StopPropagation was called.
func (e *Event) Consumed() bool { return e.consumed }

// AttrKind discriminates dynamic attribute values.
type AttrKind uint8

const (
	// AttrNone removes the attribute (or listener) this render.
	AttrNone AttrKind = iota
	// AttrText is a plain text value.
	AttrText
	// AttrHandler subscribes the element to the attribute's event name and
	// routes matching events to the handler.
	AttrHandler
)

// AttrValue is the value bound to one dynamic attribute hole for one render.
type AttrValue struct {
	Kind    AttrKind
	Text    string
	Handler Handler
}

// TextAttr returns a plain text attribute value.
func TextAttr(s string) AttrValue { return AttrValue{Kind: AttrText, Text: s} }

// NoAttr returns the absent attribute value.
func NoAttr() AttrValue { return AttrValue{Kind: AttrNone} }

// HandlerAttr returns a handler attribute value.
func HandlerAttr(h Handler) AttrValue { return AttrValue{Kind: AttrHandler, Handler: h} }

// sameAttrValue reports whether two attribute values are equal for diffing
// purposes. Handler identities are not comparable; two handler values are
// considered equal so that re-renders merely swap the handler in the
// dispatch table without emitting mutations.
func sameAttrValue(a, b AttrValue) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == AttrText {
		return a.Text == b.Text
	}
	return true
}
