// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package canopy implements the reconciliation and scheduling core of a
// declarative UI runtime. Component functions declare trees of templates
// with dynamic holes; canopy maintains the live tree of component instances
// (scopes), computes the minimal set of structural changes between
// successive renders, and drives asynchronous component work without
// blocking the render loop.
//
// The package is render-target agnostic: every change is expressed as a
// Mutation referencing flat element identifiers, and a target adapter (DOM,
// native widgets, terminal, string output) applies the ordered mutation
// stream through the Sink interface.
//
// A VirtualTree and everything hanging off it (scopes, the slot store, the
// diffing engine) is single-threaded: all methods must be called from one
// scheduler goroutine. Asynchronous work started with Context.Spawn runs on
// its own goroutine but hands its effects back to the scheduler through
// TaskContext.Post.
package canopy
