// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"context"

	"github.com/cockroachdb/errors"
)

// TaskID identifies one unit of asynchronous component work.
type TaskID uint64

// Priority is the scheduling tier of a task's effects.
type Priority int8

const (
	// PriorityImmediate is for user-interaction-driven work; its effects run
	// before the next flush and always before background effects.
	PriorityImmediate Priority = iota
	// PriorityBackground is for prefetching and derived work; its effects
	// run only when no immediate work is pending and may be paced by
	// Options.BackgroundWorkRate.
	PriorityBackground
)

// String implements fmt.Stringer.
func (p Priority) String() string {
	switch p {
	case PriorityImmediate:
		return "immediate"
	case PriorityBackground:
		return "background"
	default:
		return "unknown"
	}
}

// SafeValue implements redact.SafeValue.
func (p Priority) SafeValue() {}

// TaskFunc is the body of a task. It runs on its own goroutine and must not
// touch the tree or any hook state directly; all effects go through
// TaskContext.Post. Returning a non-nil error routes the owning scope to
// its fallback path.
type TaskFunc func(tc *TaskContext) error

type task struct {
	id     TaskID
	scope  ScopeID
	tier   Priority
	ctx    context.Context
	cancel context.CancelFunc
}

// TaskContext is handed to a running task.
type TaskContext struct {
	vt *VirtualTree
	t  *task
}

// Context returns the task's context. It is cancelled when the owning scope
// is destroyed or the task is cancelled individually.
func (tc *TaskContext) Context() context.Context { return tc.t.ctx }

// Scope returns the identity of the owning scope.
func (tc *TaskContext) Scope() ScopeID { return tc.t.scope }

// Post hands fn to the scheduler goroutine, to run during the collecting
// phase of a later render pass at the task's priority tier. It returns
// false if the task was cancelled or the queue is full; fn is then never
// run. Effects posted before cancellation and not yet executed are dropped
// silently: a cancelled task's side effects are a no-op, not an error.
func (tc *TaskContext) Post(fn func()) bool {
	if tc.t.ctx.Err() != nil {
		return false
	}
	return tc.vt.postEffect(effect{t: tc.t, fn: fn})
}

// effect is one closure handed back to the scheduler by a task.
type effect struct {
	t  *task
	fn func()
}

func (vt *VirtualTree) spawnTask(s *Scope, tier Priority, fn TaskFunc) TaskID {
	vt.nextTask++
	t := &task{id: vt.nextTask, scope: s.id, tier: tier}
	t.ctx, t.cancel = context.WithCancel(s.taskCtx)
	vt.tasksSpawned.Add(1)
	vt.opts.EventListener.TaskSpawned(TaskInfo{ID: t.id, Scope: t.scope, Priority: t.tier})
	go func() {
		err := fn(&TaskContext{vt: vt, t: t})
		vt.finishTask(t, err)
	}()
	return t.id
}

// finishTask runs on the task's goroutine.
func (vt *VirtualTree) finishTask(t *task, err error) {
	info := TaskInfo{ID: t.id, Scope: t.scope, Priority: t.tier, Err: err}
	switch {
	case t.ctx.Err() != nil:
		info.Cancelled = true
		info.Err = nil
		vt.tasksCancelled.Add(1)
	case err != nil:
		vt.tasksFailed.Add(1)
		// Route the failure to the owning scope. The effect is tied to the
		// task, so a scope destroyed in the meantime drops it.
		scope := t.scope
		vt.postEffect(effect{t: t, fn: func() {
			vt.failScope(scope, err)
		}})
	default:
		vt.tasksCompleted.Add(1)
	}
	t.cancel()
	vt.opts.EventListener.TaskDone(info)
}

// failScope records a task failure against the scope; the next render of
// the scope takes the fallback path. Runs on the scheduler goroutine.
func (vt *VirtualTree) failScope(id ScopeID, err error) {
	s, ok := vt.scopes.Get(id)
	if !ok {
		return
	}
	s.pendingErr = errors.Wrapf(err, "canopy: task owned by scope %d failed", id)
	vt.MarkDirty(id)
}
