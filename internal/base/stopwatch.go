// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import (
	"time"

	"github.com/cockroachdb/crlib/crtime"
)

// Stopwatch measures elapsed wall time using a monotonic clock. It is used
// to time render passes and flushes for the event listener and metrics.
type Stopwatch struct {
	startTime crtime.Mono
}

// MakeStopwatch returns a started Stopwatch.
func MakeStopwatch() Stopwatch {
	return Stopwatch{startTime: crtime.NowMono()}
}

// Elapsed returns the duration since the stopwatch was started.
func (w Stopwatch) Elapsed() time.Duration {
	return w.startTime.Elapsed()
}
