// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import "strings"

// Sink is the boundary between the core and a render-target adapter. The
// adapter must apply mutations strictly in slice order within one call and
// may assume that every referenced id was assigned by an earlier mutation
// and not yet removed.
//
// An error from Apply is propagated, unretried, to the caller of the flush
// operation; the core treats it as opaque.
type Sink interface {
	Apply(ms []Mutation) error
}

// RecordingSink accumulates every applied mutation. It is primarily useful
// in tests and tools that inspect the change stream.
type RecordingSink struct {
	Mutations []Mutation
}

var _ Sink = (*RecordingSink)(nil)

// Apply implements Sink.
func (s *RecordingSink) Apply(ms []Mutation) error {
	s.Mutations = append(s.Mutations, ms...)
	return nil
}

// Take returns the recorded mutations and resets the sink.
func (s *RecordingSink) Take() []Mutation {
	ms := s.Mutations
	s.Mutations = nil
	return ms
}

// String renders the recorded mutations one per line.
func (s *RecordingSink) String() string {
	var sb strings.Builder
	for _, m := range s.Mutations {
		sb.WriteString(m.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DiscardSink drops all mutations.
type DiscardSink struct{}

var _ Sink = DiscardSink{}

// Apply implements Sink.
func (DiscardSink) Apply([]Mutation) error { return nil }
