// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"time"

	"github.com/cockroachdb/redact"
)

// RenderPassInfo contains the info for a render pass event.
type RenderPassInfo struct {
	// Pass is the monotonically increasing pass number.
	Pass int64
	// DirtyScopes is the number of scopes re-rendered during the pass.
	DirtyScopes int
	// Mutations is the number of mutations the pass produced.
	Mutations int
	// Duration is the total pass time, including the flush.
	Duration time.Duration
	Err      error
}

func (i RenderPassInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i RenderPassInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	if i.Err != nil {
		w.Printf("[render pass %d failed: %v]", i.Pass, i.Err)
		return
	}
	w.Printf("[render pass %d: %d scopes, %d mutations, in %.2fms]",
		i.Pass, i.DirtyScopes, i.Mutations, float64(i.Duration.Microseconds())/1e3)
}

// FlushInfo contains the info for a flush event.
type FlushInfo struct {
	Pass      int64
	Mutations int
	Duration  time.Duration
	Err       error
}

func (i FlushInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i FlushInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	if i.Err != nil {
		w.Printf("[flush of pass %d failed: %v]", i.Pass, i.Err)
		return
	}
	w.Printf("[flush of pass %d: %d mutations in %.2fms]",
		i.Pass, i.Mutations, float64(i.Duration.Microseconds())/1e3)
}

// ScopeInfo contains the info for a scope lifecycle event.
type ScopeInfo struct {
	ID        ScopeID
	Component string
	Height    int
}

func (i ScopeInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i ScopeInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("[scope %d %s height=%d]", i.ID, redact.SafeString(i.Component), i.Height)
}

// ComponentPanicInfo contains the info for a contained component failure.
type ComponentPanicInfo struct {
	Scope     ScopeID
	Component string
	Err       error
}

func (i ComponentPanicInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i ComponentPanicInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("[component panic in scope %d %s: %v]",
		i.Scope, redact.SafeString(i.Component), i.Err)
}

// TaskInfo contains the info for a task lifecycle event.
type TaskInfo struct {
	ID        TaskID
	Scope     ScopeID
	Priority  Priority
	Cancelled bool
	Err       error
}

func (i TaskInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i TaskInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	switch {
	case i.Err != nil:
		w.Printf("[task %d scope=%d %s failed: %v]", i.ID, i.Scope, i.Priority, i.Err)
	case i.Cancelled:
		w.Printf("[task %d scope=%d %s cancelled]", i.ID, i.Scope, i.Priority)
	default:
		w.Printf("[task %d scope=%d %s]", i.ID, i.Scope, i.Priority)
	}
}

// EventListener contains a set of functions that will be invoked when
// various significant tree events occur. Note that the functions should not
// run for an excessive amount of time as they are invoked synchronously by
// the tree: most on the scheduler goroutine, TaskDone on the goroutine of
// the task that finished.
type EventListener struct {
	// RenderPassBegin is invoked when a render pass leaves the idle state.
	RenderPassBegin func(RenderPassInfo)
	// RenderPassEnd is invoked after a render pass returned to idle.
	RenderPassEnd func(RenderPassInfo)
	// FlushEnd is invoked after the mutation batch was handed to the sink.
	FlushEnd func(FlushInfo)
	// ScopeCreated is invoked when a component instance is created.
	ScopeCreated func(ScopeInfo)
	// ScopeDestroyed is invoked when a component instance is destroyed.
	ScopeDestroyed func(ScopeInfo)
	// ComponentPanic is invoked when a component body failure was contained
	// at its scope boundary.
	ComponentPanic func(ComponentPanicInfo)
	// TaskSpawned is invoked when asynchronous work is registered.
	TaskSpawned func(TaskInfo)
	// TaskDone is invoked when asynchronous work completes, fails, or is
	// cancelled.
	TaskDone func(TaskInfo)
}

// EnsureDefaults ensures that all nil callbacks are set to no-ops.
func (l *EventListener) EnsureDefaults() {
	if l.RenderPassBegin == nil {
		l.RenderPassBegin = func(RenderPassInfo) {}
	}
	if l.RenderPassEnd == nil {
		l.RenderPassEnd = func(RenderPassInfo) {}
	}
	if l.FlushEnd == nil {
		l.FlushEnd = func(FlushInfo) {}
	}
	if l.ScopeCreated == nil {
		l.ScopeCreated = func(ScopeInfo) {}
	}
	if l.ScopeDestroyed == nil {
		l.ScopeDestroyed = func(ScopeInfo) {}
	}
	if l.ComponentPanic == nil {
		l.ComponentPanic = func(ComponentPanicInfo) {}
	}
	if l.TaskSpawned == nil {
		l.TaskSpawned = func(TaskInfo) {}
	}
	if l.TaskDone == nil {
		l.TaskDone = func(TaskInfo) {}
	}
}

// MakeLoggingEventListener creates an EventListener that logs all events to
// the specified logger.
func MakeLoggingEventListener(logger Logger) EventListener {
	if logger == nil {
		logger = DefaultLogger{}
	}
	return EventListener{
		RenderPassBegin: func(info RenderPassInfo) {
			logger.Infof("render pass %d begin", info.Pass)
		},
		RenderPassEnd: func(info RenderPassInfo) {
			logger.Infof("%s", info)
		},
		FlushEnd: func(info FlushInfo) {
			logger.Infof("%s", info)
		},
		ScopeCreated: func(info ScopeInfo) {
			logger.Infof("created %s", info)
		},
		ScopeDestroyed: func(info ScopeInfo) {
			logger.Infof("destroyed %s", info)
		},
		ComponentPanic: func(info ComponentPanicInfo) {
			logger.Errorf("%s", info)
		},
		TaskSpawned: func(info TaskInfo) {
			logger.Infof("spawned %s", info)
		},
		TaskDone: func(info TaskInfo) {
			logger.Infof("done %s", info)
		},
	}
}

// TeeEventListener wraps two EventListeners, forwarding all events to both.
func TeeEventListener(a, b EventListener) EventListener {
	a.EnsureDefaults()
	b.EnsureDefaults()
	return EventListener{
		RenderPassBegin: func(info RenderPassInfo) { a.RenderPassBegin(info); b.RenderPassBegin(info) },
		RenderPassEnd:   func(info RenderPassInfo) { a.RenderPassEnd(info); b.RenderPassEnd(info) },
		FlushEnd:        func(info FlushInfo) { a.FlushEnd(info); b.FlushEnd(info) },
		ScopeCreated:    func(info ScopeInfo) { a.ScopeCreated(info); b.ScopeCreated(info) },
		ScopeDestroyed:  func(info ScopeInfo) { a.ScopeDestroyed(info); b.ScopeDestroyed(info) },
		ComponentPanic:  func(info ComponentPanicInfo) { a.ComponentPanic(info); b.ComponentPanic(info) },
		TaskSpawned:     func(info TaskInfo) { a.TaskSpawned(info); b.TaskSpawned(info) },
		TaskDone:        func(info TaskInfo) { a.TaskDone(info); b.TaskDone(info) },
	}
}
