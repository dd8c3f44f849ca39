// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"context"
	"reflect"
	"runtime"

	"github.com/canopyui/canopy/slot"
	"github.com/cockroachdb/errors"
)

// ScopeID is the stable identity of a live component instance. Ids are
// allocated monotonically and never reused while the tree is alive.
type ScopeID uint64

// InvalidScopeID is the zero ScopeID; the root scope's parent.
const InvalidScopeID ScopeID = 0

// Scope is a live component instance: the component, its current props, its
// hook slot region, the node tree of its last committed render, and its
// position in the scope tree.
type Scope struct {
	id     ScopeID
	parent ScopeID
	// height is the depth of the scope in the tree (root is 0). The
	// scheduler drains dirty scopes in ascending height order so a parent's
	// re-render, which may destroy or recreate children, always happens
	// before those children would otherwise be revisited.
	height int

	component Component
	props     any
	key       string

	// owner is the scope's region of the tree's slot store. Hook slots are
	// allocated through it in call order; destroying the scope releases the
	// whole region.
	owner      *slot.Owner
	hookCursor int
	// hookCount is the number of hook slots read during the first render,
	// or -1 before the first render completed. Every later render must read
	// exactly the same number.
	hookCount int

	lastNode *VNode
	dirty    bool
	// pendingErr carries a task failure to the next render, which renders
	// the fallback path instead of the component body.
	pendingErr error

	// taskCtx is cancelled when the scope is destroyed, cancelling all
	// tasks the scope owns.
	taskCtx     context.Context
	cancelTasks context.CancelFunc
}

// ID returns the scope's identity.
func (s *Scope) ID() ScopeID { return s.id }

// Height returns the scope's depth in the tree.
func (s *Scope) Height() int { return s.height }

func componentName(c Component) string {
	if f, ok := c.(ComponentFunc); ok {
		if fn := runtime.FuncForPC(reflect.ValueOf(f).Pointer()); fn != nil {
			return fn.Name()
		}
	}
	return reflect.TypeOf(c).String()
}

func (vt *VirtualTree) createScope(parent *Scope, c Component, props any, key string) *Scope {
	vt.nextScope++
	s := &Scope{
		id:        vt.nextScope,
		parent:    InvalidScopeID,
		component: c,
		props:     props,
		key:       key,
		owner:     vt.store.NewOwner(),
		hookCount: -1,
	}
	if parent != nil {
		s.parent = parent.id
		s.height = parent.height + 1
	}
	s.taskCtx, s.cancelTasks = context.WithCancel(context.Background())
	vt.scopes.Put(s.id, s)
	vt.scopesCreated++
	vt.opts.EventListener.ScopeCreated(ScopeInfo{
		ID: s.id, Component: componentName(c), Height: s.height,
	})
	return s
}

// destroyScope releases everything the scope owns: its tasks, its hook slot
// region, the element ids of its committed subtree, and any child scopes
// mounted inside that subtree. It emits no mutations; the caller is
// responsible for detaching the subtree from the target first.
func (vt *VirtualTree) destroyScope(id ScopeID) {
	s, ok := vt.scopes.Get(id)
	if !ok {
		return
	}
	s.cancelTasks()
	if s.lastNode != nil {
		vt.releaseNode(s.lastNode)
		s.lastNode = nil
	}
	s.owner.Release()
	s.dirty = false
	vt.scopes.Delete(id)
	vt.scopesDestroyed++
	vt.opts.EventListener.ScopeDestroyed(ScopeInfo{
		ID: s.id, Component: componentName(s.component), Height: s.height,
	})
}

func (vt *VirtualTree) scopeOf(id ScopeID) *Scope {
	s, _ := vt.scopes.Get(id)
	return s
}

func (vt *VirtualTree) mustScope(id ScopeID) *Scope {
	s, ok := vt.scopes.Get(id)
	if !ok {
		panic(errors.AssertionFailedf("canopy: scope %d not found", id))
	}
	return s
}

// runScope invokes the scope's component body with the hook cursor reset to
// zero and returns the fresh node tree. A panic in the body is converted to
// an error, except for invariant violations (hook order, stale handles)
// which propagate: continuing past those would corrupt unrelated state.
func (vt *VirtualTree) runScope(s *Scope) (node *VNode, err error) {
	prev := vt.current
	vt.current = s
	defer func() { vt.current = prev }()

	s.hookCursor = 0
	func() {
		defer func() {
			if r := recover(); r != nil {
				if e, ok := r.(error); ok {
					if isInvariantViolation(e) {
						panic(r)
					}
					err = errors.Wrapf(e, "canopy: component %s failed", componentName(s.component))
					return
				}
				err = errors.Newf("canopy: component %s panicked: %v", componentName(s.component), r)
			}
		}()
		node = s.component.Render(&Context{vt: vt, scope: s})
	}()
	if err != nil {
		return nil, err
	}
	if node == nil {
		node = placeholderVNode()
	}
	if verr := node.validate(); verr != nil {
		panic(verr)
	}
	if s.hookCount < 0 {
		s.hookCount = s.hookCursor
	} else if s.hookCount != s.hookCursor {
		panic(errors.Mark(errors.AssertionFailedf(
			"canopy: scope %d (%s) read %d hook slots, first render read %d",
			s.id, componentName(s.component), s.hookCursor, s.hookCount), ErrHookOrder))
	}
	return node, nil
}

// renderScopeNode runs the scope and, if the body fails, substitutes the
// nearest configured fallback so sibling and ancestor subtrees keep
// rendering.
func (vt *VirtualTree) renderScopeNode(s *Scope) *VNode {
	var node *VNode
	var err error
	if s.pendingErr != nil {
		err = s.pendingErr
		s.pendingErr = nil
	} else {
		node, err = vt.runScope(s)
	}
	if err == nil {
		return node
	}
	vt.opts.EventListener.ComponentPanic(ComponentPanicInfo{
		Scope: s.id, Component: componentName(s.component), Err: err,
	})
	return vt.fallbackNode(s, err)
}

func (vt *VirtualTree) fallbackNode(s *Scope, err error) *VNode {
	for cur := s; cur != nil; cur = vt.scopeOf(cur.parent) {
		if fr, ok := cur.component.(FallbackRenderer); ok {
			if n := fr.RenderFallback(err); n != nil && n.validate() == nil {
				return n
			}
		}
	}
	if vt.opts.Fallback != nil {
		if n := vt.opts.Fallback(err); n != nil && n.validate() == nil {
			return n
		}
	}
	return placeholderVNode()
}

var placeholderTemplate = NewTemplate("canopy.placeholder", Dynamic(0))

func placeholderVNode() *VNode {
	n := NewVNode(placeholderTemplate)
	n.Dynamic[0] = Absent{}
	return n
}
