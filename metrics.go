// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"bytes"
	"fmt"
)

// Metrics holds cumulative counters for a VirtualTree. Callers obtain a
// snapshot through VirtualTree.Metrics; latency distributions are exported
// through the prometheus histograms injected via Options.
type Metrics struct {
	// RenderPasses is the number of completed render passes.
	RenderPasses int64
	// MutationsEmitted is the total number of mutations flushed.
	MutationsEmitted int64
	// Flushes is the number of non-empty batches handed to a sink.
	Flushes int64

	Scopes struct {
		// Created is the number of scopes ever created.
		Created int64
		// Destroyed is the number of scopes destroyed.
		Destroyed int64
		// Live is Created - Destroyed.
		Live int64
	}

	Elements struct {
		// Assigned is the number of element ids ever assigned.
		Assigned int64
		// Released is the number of element ids released.
		Released int64
		// Live is Assigned - Released.
		Live int64
	}

	Tasks struct {
		Spawned   int64
		Completed int64
		Cancelled int64
		Failed    int64
	}

	Events struct {
		// Enqueued is the number of inbound events accepted.
		Enqueued int64
		// Dispatched is the number of events routed to at least one handler.
		Dispatched int64
		// Dropped is the number of events rejected because the queue was full.
		Dropped int64
	}

	Slots struct {
		// Live is the number of live hook slots.
		Live int64
		// Capacity is the slot store's high-water slot count.
		Capacity int64
	}
}

// String pretty-prints the metrics.
func (m *Metrics) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "passes %d (%d mutations, %d flushes)\n",
		m.RenderPasses, m.MutationsEmitted, m.Flushes)
	fmt.Fprintf(&buf, "scopes %d live (%d created, %d destroyed)\n",
		m.Scopes.Live, m.Scopes.Created, m.Scopes.Destroyed)
	fmt.Fprintf(&buf, "elements %d live (%d assigned, %d released)\n",
		m.Elements.Live, m.Elements.Assigned, m.Elements.Released)
	fmt.Fprintf(&buf, "tasks %d spawned (%d completed, %d cancelled, %d failed)\n",
		m.Tasks.Spawned, m.Tasks.Completed, m.Tasks.Cancelled, m.Tasks.Failed)
	fmt.Fprintf(&buf, "events %d enqueued (%d dispatched, %d dropped)\n",
		m.Events.Enqueued, m.Events.Dispatched, m.Events.Dropped)
	fmt.Fprintf(&buf, "slots %d live (capacity %d)\n", m.Slots.Live, m.Slots.Capacity)
	return buf.String()
}
