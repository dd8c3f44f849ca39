// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"sync"
	"sync/atomic"

	"github.com/canopyui/canopy/internal/invariants"
	"github.com/canopyui/canopy/slot"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
	"github.com/cockroachdb/tokenbucket"
)

// VirtualTree owns a whole component tree: the scope tree, the slot store
// backing hook state, the element id space, the diffing engine and the
// scheduler queues. All methods except EnqueueEvent and TaskContext.Post
// must be called from a single goroutine, the scheduler goroutine.
type VirtualTree struct {
	opts Options

	rootComponent Component
	rootProps     any
	root          ScopeID

	store     slot.Store
	scopes    swiss.Map[ScopeID, *Scope]
	nextScope ScopeID

	elems elementAllocator
	meta  swiss.Map[ElementID, *elementMeta]

	// current is the scope whose component body is running, so hooks can
	// find their slot region without explicit threading. Its lifetime is
	// scoped to one runScope call.
	current *Scope

	dirty dirtyHeap

	buf []Mutation

	// wake is poked whenever work arrives; WaitForWork blocks on it.
	wake chan struct{}

	eventQ struct {
		sync.Mutex
		items    []queuedEvent
		enqueued int64
		dropped  int64
	}
	effectQ struct {
		sync.Mutex
		immediate  []effect
		background []effect
	}
	bgPacer *tokenbucket.TokenBucket

	// closed is set once by Close. It is atomic because EnqueueEvent and
	// postEffect read it from arbitrary goroutines.
	closed atomic.Bool

	nextTask       TaskID
	tasksSpawned   atomic.Int64
	tasksCompleted atomic.Int64
	tasksCancelled atomic.Int64
	tasksFailed    atomic.Int64

	pass             int64
	phase            passPhase
	scopesCreated    int64
	scopesDestroyed  int64
	elemsAssigned    int64
	elemsReleased    int64
	mutationsFlushed int64
	flushes          int64
	eventsDispatched int64
}

// elementMeta is the core-side record of one assigned element id: its
// structural parent (for event bubbling) and any registered handlers.
type elementMeta struct {
	parent   ElementID
	scope    ScopeID
	handlers map[string]Handler
}

// New creates a VirtualTree that will render root with the given props.
// Call Mount to produce the initial render.
func New(root Component, props any, opts *Options) *VirtualTree {
	if root == nil {
		panic(errors.AssertionFailedf("canopy: nil root component"))
	}
	var o Options
	if opts != nil {
		o = *opts
	}
	o.EnsureDefaults()
	vt := &VirtualTree{
		opts:          o,
		rootComponent: root,
		rootProps:     props,
		wake:          make(chan struct{}, 1),
	}
	vt.scopes.Init(16)
	vt.meta.Init(64)
	if o.BackgroundWorkRate > 0 {
		vt.bgPacer = &tokenbucket.TokenBucket{}
		vt.bgPacer.Init(
			tokenbucket.TokensPerSecond(o.BackgroundWorkRate),
			tokenbucket.Tokens(o.BackgroundWorkRate))
	}
	return vt
}

// Mount performs the initial render: it creates the root scope, builds its
// subtree, appends the roots to RootElementID and flushes the batch to
// sink.
func (vt *VirtualTree) Mount(sink Sink) error {
	if vt.closed.Load() {
		return ErrTreeClosed
	}
	if vt.root != InvalidScopeID {
		return errors.AssertionFailedf("canopy: tree already mounted")
	}
	s := vt.createScope(nil, vt.rootComponent, vt.rootProps, "")
	vt.root = s.id
	node := vt.renderScopeNode(s)
	ids := vt.createNode(s, node)
	s.lastNode = node
	vt.emit(AppendChildren{Parent: RootElementID, Children: ids})
	vt.setParents(ids, RootElementID)
	vt.checkConsistency()
	return vt.flush(sink)
}

// Close destroys the whole tree, cancelling every task and releasing every
// scope and element id. No mutations are emitted; the adapter is expected
// to tear down its side wholesale.
func (vt *VirtualTree) Close() error {
	if vt.closed.Load() {
		return ErrTreeClosed
	}
	if vt.root != InvalidScopeID {
		vt.destroyScope(vt.root)
		vt.root = InvalidScopeID
	}
	vt.closed.Store(true)
	vt.buf = nil
	vt.poke()
	return nil
}

// MarkDirty queues the scope for re-rendering in the next rendering phase.
// Marking an already-dirty or destroyed scope is a no-op.
func (vt *VirtualTree) MarkDirty(id ScopeID) {
	if vt.closed.Load() {
		return
	}
	s, ok := vt.scopes.Get(id)
	if !ok || s.dirty {
		return
	}
	s.dirty = true
	vt.dirty.push(s.id, s.height)
	vt.poke()
}

// Root returns the root scope id, or InvalidScopeID before Mount.
func (vt *VirtualTree) Root() ScopeID { return vt.root }

func (vt *VirtualTree) poke() {
	select {
	case vt.wake <- struct{}{}:
	default:
	}
}

func (vt *VirtualTree) emit(m Mutation) {
	vt.buf = append(vt.buf, m)
}

func (vt *VirtualTree) assignID(owner ScopeID) ElementID {
	id := vt.elems.alloc()
	vt.meta.Put(id, &elementMeta{scope: owner})
	vt.elemsAssigned++
	vt.emit(AssignID{ID: id})
	return id
}

func (vt *VirtualTree) releaseElement(id ElementID) {
	if _, ok := vt.meta.Get(id); !ok {
		panic(errors.AssertionFailedf("canopy: releasing unassigned element %d", id))
	}
	vt.meta.Delete(id)
	vt.elems.release(id)
	vt.elemsReleased++
}

func (vt *VirtualTree) parentOf(id ElementID) ElementID {
	if m, ok := vt.meta.Get(id); ok {
		return m.parent
	}
	return RootElementID
}

func (vt *VirtualTree) setParents(ids []ElementID, parent ElementID) {
	for _, id := range ids {
		if m, ok := vt.meta.Get(id); ok {
			m.parent = parent
		}
	}
}

func (vt *VirtualTree) setHandler(id ElementID, event string, h Handler) {
	m, ok := vt.meta.Get(id)
	if !ok {
		panic(errors.AssertionFailedf("canopy: handler on unassigned element %d", id))
	}
	if m.handlers == nil {
		m.handlers = make(map[string]Handler)
	}
	m.handlers[event] = h
}

func (vt *VirtualTree) removeHandler(id ElementID, event string) {
	if m, ok := vt.meta.Get(id); ok {
		delete(m.handlers, event)
	}
}

// postEffect queues a task effect at the task's tier. Safe to call from any
// goroutine.
func (vt *VirtualTree) postEffect(e effect) bool {
	vt.effectQ.Lock()
	defer vt.effectQ.Unlock()
	if vt.closed.Load() {
		return false
	}
	q := &vt.effectQ.immediate
	if e.t.tier == PriorityBackground {
		q = &vt.effectQ.background
	}
	if len(*q) >= vt.opts.MaxQueuedEffects {
		return false
	}
	*q = append(*q, e)
	vt.poke()
	return true
}

// checkConsistency walks the committed tree in invariant builds, verifying
// that every id referenced by a mounted subtree is still assigned, every
// mounted component slot points at a live scope, and every parent link
// targets an assigned element or the root.
func (vt *VirtualTree) checkConsistency() {
	if !invariants.Enabled {
		return
	}
	vt.scopes.All(func(_ ScopeID, s *Scope) bool {
		if s.lastNode != nil {
			vt.checkNodeMounted(s.lastNode)
		}
		return true
	})
	// The parent-link walk visits every assigned element, so sample it
	// rather than paying the full cost on every pass. Race builds are
	// slow enough already; sample harder there.
	percent := 20
	if invariants.RaceEnabled {
		percent = 5
	}
	if !invariants.Sometimes(percent) {
		return
	}
	vt.meta.All(func(id ElementID, m *elementMeta) bool {
		if m.parent != RootElementID {
			if _, ok := vt.meta.Get(m.parent); !ok {
				panic(errors.AssertionFailedf(
					"canopy: element %d has unassigned parent %d", id, m.parent))
			}
		}
		return true
	})
}

func (vt *VirtualTree) checkNodeMounted(n *VNode) {
	if n.mount == nil {
		panic(errors.AssertionFailedf(
			"canopy: committed node of template %q has no mount state", n.Template.name))
	}
	for _, id := range n.mount.all {
		if _, ok := vt.meta.Get(id); !ok {
			panic(errors.AssertionFailedf(
				"canopy: committed node of template %q references released element %d",
				n.Template.name, id))
		}
	}
	for i := range n.Dynamic {
		vt.checkDynMounted(n.Dynamic[i], &n.mount.dynamic[i])
	}
}

func (vt *VirtualTree) checkDynMounted(dn DynamicNode, m *dynMount) {
	switch d := dn.(type) {
	case Absent:
		if _, ok := vt.meta.Get(m.id); !ok {
			panic(errors.AssertionFailedf("canopy: absent slot lost placeholder %d", m.id))
		}
	case Nested:
		vt.checkNodeMounted(d.Node)
	case ComponentNode:
		if _, ok := vt.scopes.Get(m.scope); !ok {
			panic(errors.AssertionFailedf("canopy: mounted component slot references dead scope %d", m.scope))
		}
	case Fragment:
		if len(d.Children) == 0 {
			if _, ok := vt.meta.Get(m.id); !ok {
				panic(errors.AssertionFailedf("canopy: empty fragment lost placeholder %d", m.id))
			}
			return
		}
		for i := range d.Children {
			vt.checkDynMounted(d.Children[i], &m.items[i])
		}
	}
}

// Metrics returns a snapshot of the tree's cumulative counters.
func (vt *VirtualTree) Metrics() Metrics {
	var m Metrics
	m.RenderPasses = vt.pass
	m.MutationsEmitted = vt.mutationsFlushed
	m.Flushes = vt.flushes
	m.Scopes.Created = vt.scopesCreated
	m.Scopes.Destroyed = vt.scopesDestroyed
	m.Scopes.Live = invariants.SafeSub(vt.scopesCreated, vt.scopesDestroyed)
	m.Elements.Assigned = vt.elemsAssigned
	m.Elements.Released = vt.elemsReleased
	m.Elements.Live = invariants.SafeSub(vt.elemsAssigned, vt.elemsReleased)
	m.Tasks.Spawned = vt.tasksSpawned.Load()
	m.Tasks.Completed = vt.tasksCompleted.Load()
	m.Tasks.Cancelled = vt.tasksCancelled.Load()
	m.Tasks.Failed = vt.tasksFailed.Load()
	vt.eventQ.Lock()
	m.Events.Enqueued = vt.eventQ.enqueued
	m.Events.Dropped = vt.eventQ.dropped
	vt.eventQ.Unlock()
	m.Events.Dispatched = vt.eventsDispatched
	m.Slots.Live = int64(vt.store.Len())
	m.Slots.Capacity = int64(vt.store.Cap())
	return m
}
