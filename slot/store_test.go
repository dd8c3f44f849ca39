// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package slot

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestStoreBasic(t *testing.T) {
	var s Store
	h := s.Alloc("hello")
	require.True(t, h.Valid())

	v, err := s.Get(h)
	require.NoError(t, err)
	require.Equal(t, "hello", v)

	require.NoError(t, s.Set(h, "world"))
	v, err = s.Get(h)
	require.NoError(t, err)
	require.Equal(t, "world", v)

	require.Equal(t, 1, s.Len())
	require.True(t, s.Release(h))
	require.Equal(t, 0, s.Len())
}

func TestStoreStaleHandle(t *testing.T) {
	var s Store
	h := s.Alloc(42)
	require.True(t, s.Release(h))

	_, err := s.Get(h)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrStaleHandle))

	err = s.Set(h, 43)
	require.True(t, errors.Is(err, ErrStaleHandle))

	// Releasing twice is a no-op.
	require.False(t, s.Release(h))

	// The zero handle is never valid.
	var zero Handle
	require.False(t, zero.Valid())
	_, err = s.Get(zero)
	require.True(t, errors.Is(err, ErrStaleHandle))
}

func TestStoreRecycling(t *testing.T) {
	var s Store
	h1 := s.Alloc("first")
	s.Release(h1)

	// The recycled slot reuses the index but not the generation, so the old
	// handle cannot alias the new occupant.
	h2 := s.Alloc("second")
	require.Equal(t, h1.idx, h2.idx)
	require.NotEqual(t, h1.gen, h2.gen)
	require.Equal(t, 1, s.Cap())

	_, err := s.Get(h1)
	require.True(t, errors.Is(err, ErrStaleHandle))
	v, err := s.Get(h2)
	require.NoError(t, err)
	require.Equal(t, "second", v)
}

func TestStoreGrowth(t *testing.T) {
	var s Store
	var handles []Handle
	for i := 0; i < 100; i++ {
		handles = append(handles, s.Alloc(i))
	}
	require.Equal(t, 100, s.Len())
	require.Equal(t, 100, s.Cap())
	for i, h := range handles {
		v, err := s.Get(h)
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
	for _, h := range handles {
		s.Release(h)
	}
	// The store does not shrink eagerly.
	require.Equal(t, 0, s.Len())
	require.Equal(t, 100, s.Cap())
}

func TestOwnerRelease(t *testing.T) {
	var s Store
	o := s.NewOwner()
	h1 := o.Alloc("a")
	h2 := o.Alloc("b")
	require.Equal(t, 2, o.Len())
	require.Equal(t, h1, o.Handle(0))
	require.Equal(t, h2, o.Handle(1))

	o.Release()
	for _, h := range []Handle{h1, h2} {
		_, err := s.Get(h)
		require.True(t, errors.Is(err, ErrStaleHandle))
	}
	require.Equal(t, 0, s.Len())

	// Idempotent.
	o.Release()

	// Another owner can reuse the index space.
	o2 := s.NewOwner()
	h3 := o2.Alloc("c")
	v, err := s.Get(h3)
	require.NoError(t, err)
	require.Equal(t, "c", v)
	_, err = s.Get(h1)
	require.True(t, errors.Is(err, ErrStaleHandle))
}
