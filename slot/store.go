// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package slot provides a generational slot store: an arena of boxed values
// addressed by copyable handles that carry a generation counter. A handle
// remains valid exactly as long as the slot it points to has not been
// released; accessing a released (and possibly recycled) slot fails with
// ErrStaleHandle instead of aliasing the new occupant.
//
// The store is not safe for concurrent use. In canopy it is only ever
// touched from the scheduler goroutine.
package slot

import (
	"github.com/canopyui/canopy/internal/invariants"
	"github.com/cockroachdb/errors"
)

// ErrStaleHandle is returned by Get and Set when the handle's slot has been
// released. Use errors.Is to test for it; the returned errors carry an
// assertion failure since a stale access indicates a bug in the caller.
var ErrStaleHandle = errors.New("slot: stale handle")

// Handle addresses a value in a Store. Handles are freely copyable and have
// no ownership semantics; the zero Handle is invalid.
type Handle struct {
	idx int32
	gen uint32
}

// Valid reports whether the handle was produced by an allocation. It does
// not imply the slot is still live.
func (h Handle) Valid() bool {
	return h.gen != 0
}

type entry struct {
	gen   uint32
	live  bool
	value any
}

// Store is an arena of generation-checked slots. The zero value is ready
// for use. The slot index space is recycled through a free list, but a
// slot's generation is bumped on every release so that handles to the
// previous occupant can never read the new one. Capacity only grows.
type Store struct {
	entries []entry
	free    []int32
	live    int
}

// Alloc stores value in a fresh or recycled slot and returns its handle.
func (s *Store) Alloc(value any) Handle {
	var idx int32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.entries = append(s.entries, entry{})
		idx = int32(len(s.entries) - 1)
	}
	e := &s.entries[idx]
	e.gen++
	e.live = true
	e.value = value
	s.live++
	return Handle{idx: idx, gen: e.gen}
}

func (s *Store) lookup(h Handle) (*entry, error) {
	if h.idx < 0 || int(h.idx) >= len(s.entries) {
		return nil, errors.Mark(
			errors.AssertionFailedf("slot: handle index %d out of range", h.idx), ErrStaleHandle)
	}
	e := &s.entries[h.idx]
	if !e.live || e.gen != h.gen {
		return nil, errors.Mark(
			errors.AssertionFailedf("slot: handle %d@%d is stale (slot at generation %d)",
				h.idx, h.gen, e.gen), ErrStaleHandle)
	}
	return e, nil
}

// Get returns the value stored under h.
func (s *Store) Get(h Handle) (any, error) {
	e, err := s.lookup(h)
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Set replaces the value stored under h.
func (s *Store) Set(h Handle, value any) error {
	e, err := s.lookup(h)
	if err != nil {
		return err
	}
	e.value = value
	return nil
}

// Release frees the slot addressed by h, recycling its index for a future
// allocation. Releasing through a stale handle is a no-op and returns false.
func (s *Store) Release(h Handle) bool {
	e, err := s.lookup(h)
	if err != nil {
		return false
	}
	e.live = false
	e.value = nil
	// Bump the generation on release rather than on alloc so that a stale
	// handle mismatches even before the index is handed out again.
	e.gen++
	s.free = append(s.free, h.idx)
	s.live--
	return true
}

// Len returns the number of live slots.
func (s *Store) Len() int {
	return s.live
}

// Cap returns the total number of slots ever allocated, live or recycled.
func (s *Store) Cap() int {
	return len(s.entries)
}

// Owner tracks a group of allocations that share one lifetime, typically the
// hook slots of a single component scope. Releasing the owner releases every
// slot allocated through it.
type Owner struct {
	store    *Store
	handles  []Handle
	released bool
}

// NewOwner returns an allocation region backed by the store.
func (s *Store) NewOwner() *Owner {
	return &Owner{store: s}
}

// Alloc stores value in the underlying store and records the handle in the
// region.
func (o *Owner) Alloc(value any) Handle {
	if o.released {
		panic(errors.AssertionFailedf("slot: alloc through released owner"))
	}
	h := o.store.Alloc(value)
	o.handles = append(o.handles, h)
	return h
}

// Handle returns the i-th handle allocated through the region.
func (o *Owner) Handle(i int) Handle {
	invariants.CheckBounds(i, len(o.handles))
	return o.handles[i]
}

// Len returns the number of handles allocated through the region.
func (o *Owner) Len() int {
	return len(o.handles)
}

// Release frees every slot allocated through the region. It is idempotent.
func (o *Owner) Release() {
	if o.released {
		return
	}
	for _, h := range o.handles {
		o.store.Release(h)
	}
	o.handles = nil
	o.released = true
}
