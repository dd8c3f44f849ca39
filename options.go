// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"github.com/canopyui/canopy/internal/base"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger re-exports base.Logger.
type Logger = base.Logger

// DefaultLogger re-exports base.DefaultLogger.
type DefaultLogger = base.DefaultLogger

// Options holds the parameters for a VirtualTree and is passed to New.
type Options struct {
	// Logger is used for runtime diagnostics. Defaults to base.DefaultLogger.
	Logger Logger

	// EventListener provides hooks into significant tree events such as
	// render passes, scope lifecycle and task failures.
	EventListener *EventListener

	// Fallback produces the node rendered in place of a failing subtree when
	// no ancestor component implements FallbackRenderer. When nil, a bare
	// placeholder is rendered.
	Fallback func(err error) *VNode

	// MaxQueuedEvents bounds the inbound event queue. Defaults to 512.
	MaxQueuedEvents int

	// MaxQueuedEffects bounds each task-effect queue. Defaults to 1024.
	MaxQueuedEffects int

	// BackgroundWorkRate limits how many background-tier task effects run
	// per second. Zero disables pacing. Immediate-tier work is never paced.
	BackgroundWorkRate float64

	// RenderLatency, if set, is fed the duration of each render pass.
	RenderLatency prometheus.Histogram

	// FlushLatency, if set, is fed the duration of each sink flush.
	FlushLatency prometheus.Histogram
}

// EnsureDefaults ensures that the default values for all options are set if
// a valid value was not already specified. Returns the options for chaining.
func (o *Options) EnsureDefaults() *Options {
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	if o.EventListener == nil {
		o.EventListener = &EventListener{}
	}
	o.EventListener.EnsureDefaults()
	if o.MaxQueuedEvents <= 0 {
		o.MaxQueuedEvents = 512
	}
	if o.MaxQueuedEffects <= 0 {
		o.MaxQueuedEffects = 1024
	}
	return o
}
