// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"github.com/canopyui/canopy/slot"
	"github.com/cockroachdb/errors"
)

// ErrTreeClosed is returned by operations on a closed VirtualTree.
var ErrTreeClosed = errors.New("canopy: tree closed")

// ErrHookOrder marks the failure raised when a scope reads a different
// number of hook slots than it did on its first render. Hook order is an
// invariant component bodies must satisfy; violating it would silently
// corrupt unrelated hook state, so the runtime panics instead of recovering.
var ErrHookOrder = errors.New("canopy: hook order changed between renders")

// ErrStaleHandle re-exports slot.ErrStaleHandle.
var ErrStaleHandle = slot.ErrStaleHandle

// isInvariantViolation reports whether err is a programmer-error class
// failure (hook order, stale handle) that must not be contained by the
// component panic boundary.
func isInvariantViolation(err error) bool {
	return errors.Is(err, ErrHookOrder) || errors.Is(err, slot.ErrStaleHandle)
}
