// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"github.com/cockroachdb/errors"
)

// queuedEvent is one inbound UI event awaiting dispatch.
type queuedEvent struct {
	target  ElementID
	name    string
	payload any
}

// EnqueueEvent queues a UI event against the element id the adapter
// observed it on. The event is dispatched during the collecting phase of
// the next render pass. Safe to call from any goroutine. When the queue is
// full the event is dropped and an error returned; the adapter decides
// whether to retry or shed.
func (vt *VirtualTree) EnqueueEvent(target ElementID, name string, payload any) error {
	vt.eventQ.Lock()
	defer vt.eventQ.Unlock()
	if vt.closed.Load() {
		return ErrTreeClosed
	}
	if len(vt.eventQ.items) >= vt.opts.MaxQueuedEvents {
		vt.eventQ.dropped++
		vt.opts.Logger.Errorf("canopy: event queue full; dropping %q on element %d", name, target)
		return errors.Newf("canopy: event queue full (%d events)", vt.opts.MaxQueuedEvents)
	}
	vt.eventQ.items = append(vt.eventQ.items, queuedEvent{target: target, name: name, payload: payload})
	vt.eventQ.enqueued++
	vt.poke()
	return nil
}

// dispatchEvent bubbles the event from its target toward the root, invoking
// every handler registered for the event name until one consumes it.
// Handlers run on the scheduler goroutine; they typically write hook state,
// which marks scopes dirty for the rendering phase of the same pass. Events
// whose target was released since enqueueing fall off the parent chain and
// are dropped.
func (vt *VirtualTree) dispatchEvent(qe *queuedEvent) {
	e := &Event{Name: qe.name, Target: qe.target, Payload: qe.payload}
	handled := false
	for id := qe.target; id != RootElementID; {
		m, ok := vt.meta.Get(id)
		if !ok {
			break
		}
		if h, ok := m.handlers[qe.name]; ok {
			handled = true
			h(e)
			if e.consumed {
				break
			}
		}
		id = m.parent
	}
	if handled {
		vt.eventsDispatched++
	}
}
