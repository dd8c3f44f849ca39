// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"context"

	"github.com/canopyui/canopy/internal/base"
	"github.com/cockroachdb/errors"
)

// passPhase tracks where in a render pass the scheduler goroutine is.
type passPhase int8

const (
	phaseIdle passPhase = iota
	phaseCollecting
	phaseRendering
	phaseFlushing
)

// dirtyEntry is one queued dirty scope. seq breaks height ties in mark
// order so renders within one level stay deterministic.
type dirtyEntry struct {
	height int
	seq    uint64
	id     ScopeID
}

// dirtyHeap is a min-heap of dirty scopes ordered by height. Parents render
// before children: a parent render may destroy or re-render a dirty child,
// and the stale entry is then skipped when popped.
type dirtyHeap struct {
	entries []dirtyEntry
	seq     uint64
}

func (h *dirtyHeap) len() int { return len(h.entries) }

func (h *dirtyHeap) less(i, j int) bool {
	if h.entries[i].height != h.entries[j].height {
		return h.entries[i].height < h.entries[j].height
	}
	return h.entries[i].seq < h.entries[j].seq
}

func (h *dirtyHeap) swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *dirtyHeap) push(id ScopeID, height int) {
	h.seq++
	h.entries = append(h.entries, dirtyEntry{height: height, seq: h.seq, id: id})
	i := len(h.entries) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *dirtyHeap) pop() (ScopeID, bool) {
	if len(h.entries) == 0 {
		return InvalidScopeID, false
	}
	top := h.entries[0].id
	n := len(h.entries) - 1
	h.entries[0] = h.entries[n]
	h.entries = h.entries[:n]
	i := 0
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.swap(i, smallest)
		i = smallest
	}
	return top, true
}

// RenderImmediate runs one full render pass synchronously: queued events
// are dispatched, task effects run, dirty scopes re-render in ascending
// height order, and the resulting mutation batch is flushed to sink. It
// must be called from the scheduler goroutine, after Mount.
func (vt *VirtualTree) RenderImmediate(sink Sink) error {
	if vt.closed.Load() {
		return ErrTreeClosed
	}
	if vt.root == InvalidScopeID {
		return errors.Newf("canopy: tree is not mounted")
	}
	if vt.phase != phaseIdle {
		panic(errors.AssertionFailedf("canopy: re-entrant render pass"))
	}
	vt.pass++
	sw := base.MakeStopwatch()
	info := RenderPassInfo{Pass: vt.pass}
	vt.opts.EventListener.RenderPassBegin(info)

	vt.phase = phaseCollecting
	vt.drainEvents()
	vt.drainEffects()

	vt.phase = phaseRendering
	for {
		id, ok := vt.dirty.pop()
		if !ok {
			break
		}
		s, ok := vt.scopes.Get(id)
		if !ok || !s.dirty {
			// The scope was destroyed, or already re-rendered as part of an
			// ancestor's diff, since it was queued.
			continue
		}
		s.dirty = false
		vt.renderAndDiffScope(s)
		info.DirtyScopes++
	}

	vt.checkConsistency()

	vt.phase = phaseFlushing
	info.Mutations = len(vt.buf)
	err := vt.flush(sink)
	vt.phase = phaseIdle

	info.Duration = sw.Elapsed()
	info.Err = err
	vt.opts.EventListener.RenderPassEnd(info)
	if vt.opts.RenderLatency != nil {
		vt.opts.RenderLatency.Observe(info.Duration.Seconds())
	}
	return err
}

// flush hands the accumulated mutation batch to sink. An empty batch skips
// the sink entirely so idempotent passes cost nothing downstream.
func (vt *VirtualTree) flush(sink Sink) error {
	batch := vt.buf
	vt.buf = nil
	if len(batch) == 0 {
		return nil
	}
	sw := base.MakeStopwatch()
	err := sink.Apply(batch)
	vt.flushes++
	vt.mutationsFlushed += int64(len(batch))
	info := FlushInfo{Pass: vt.pass, Mutations: len(batch), Duration: sw.Elapsed(), Err: err}
	vt.opts.EventListener.FlushEnd(info)
	if vt.opts.FlushLatency != nil {
		vt.opts.FlushLatency.Observe(info.Duration.Seconds())
	}
	if err != nil {
		return errors.Wrap(err, "canopy: flush")
	}
	return nil
}

func (vt *VirtualTree) drainEvents() {
	vt.eventQ.Lock()
	items := vt.eventQ.items
	vt.eventQ.items = nil
	vt.eventQ.Unlock()
	for i := range items {
		vt.dispatchEvent(&items[i])
	}
}

// drainEffects runs queued task effects: the immediate tier fully, then the
// background tier until the queue empties or the pacer runs out of tokens.
func (vt *VirtualTree) drainEffects() {
	vt.effectQ.Lock()
	imm := vt.effectQ.immediate
	vt.effectQ.immediate = nil
	vt.effectQ.Unlock()
	for _, e := range imm {
		vt.runEffect(e)
	}

	for {
		if vt.bgPacer != nil {
			if ok, _ := vt.bgPacer.TryToFulfill(1); !ok {
				break
			}
		}
		vt.effectQ.Lock()
		var e effect
		ok := len(vt.effectQ.background) > 0
		if ok {
			e = vt.effectQ.background[0]
			vt.effectQ.background = vt.effectQ.background[1:]
		}
		vt.effectQ.Unlock()
		if !ok {
			if vt.bgPacer != nil {
				// Refund the token taken for an effect that wasn't there.
				vt.bgPacer.Adjust(1)
			}
			return
		}
		vt.runEffect(e)
	}
}

// runEffect runs one posted effect on the scheduler goroutine. Effects of
// tasks whose owning scope was destroyed are dropped without running.
func (vt *VirtualTree) runEffect(e effect) {
	s, ok := vt.scopes.Get(e.t.scope)
	if !ok || s.taskCtx.Err() != nil {
		return
	}
	e.fn()
}

// WaitForWork blocks until the tree has pending work (queued events, task
// effects or dirty scopes), the context is cancelled, or the tree is
// closed. It is the idle point of a scheduler loop:
//
//	for vt.WaitForWork(ctx) == nil {
//		if err := vt.RenderImmediate(sink); err != nil { ... }
//	}
func (vt *VirtualTree) WaitForWork(ctx context.Context) error {
	for {
		if vt.closed.Load() {
			return ErrTreeClosed
		}
		if vt.hasWork() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-vt.wake:
		}
	}
}

func (vt *VirtualTree) hasWork() bool {
	if vt.dirty.len() > 0 {
		return true
	}
	vt.eventQ.Lock()
	n := len(vt.eventQ.items)
	vt.eventQ.Unlock()
	if n > 0 {
		return true
	}
	vt.effectQ.Lock()
	n = len(vt.effectQ.immediate) + len(vt.effectQ.background)
	vt.effectQ.Unlock()
	return n > 0
}
