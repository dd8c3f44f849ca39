// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"fmt"
	"strconv"
	"strings"
)

// ElementID is a flat handle referencing one node in the render target. The
// core allocates ids and announces them through AssignID mutations; the
// adapter maps each id to whatever an "element" means for its target. Ids
// are recycled internally after a Remove or ReplaceWith retires them.
type ElementID uint32

// RootElementID is the mount point the initial render is appended to. It is
// never allocated to a node.
const RootElementID ElementID = 0

func (id ElementID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// elementAllocator hands out element ids from a slab with a free list.
// Freed ids are reused LIFO, keeping the id space dense.
type elementAllocator struct {
	next ElementID
	free []ElementID
}

func (a *elementAllocator) alloc() ElementID {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return id
	}
	a.next++
	return a.next
}

func (a *elementAllocator) release(id ElementID) {
	a.free = append(a.free, id)
}

// A Mutation is one instruction in the ordered change stream handed to a
// Sink. Mutations reference nodes exclusively by ElementID and must be
// applied in emission order: a later mutation may reference an id assigned
// by an earlier one.
type Mutation interface {
	fmt.Stringer
	mutation()
}

// AssignID announces that id now refers to the next logical node the
// following instructions create.
type AssignID struct {
	ID ElementID
}

// CreateElement creates an element node with the given tag under id.
type CreateElement struct {
	ID  ElementID
	Tag string
}

// CreateText creates a text node under id.
type CreateText struct {
	ID    ElementID
	Value string
}

// CreatePlaceholder creates an invisible anchor node under id. Placeholders
// keep a stable position for dynamic slots that currently render nothing.
type CreatePlaceholder struct {
	ID ElementID
}

// SetAttribute sets or removes an attribute on the element id.
type SetAttribute struct {
	ID     ElementID
	Name   string
	Value  string
	Remove bool
}

// SetText replaces the text content of the text node id.
type SetText struct {
	ID    ElementID
	Value string
}

// AppendChildren appends the given nodes, in order, as the last children of
// Parent.
type AppendChildren struct {
	Parent   ElementID
	Children []ElementID
}

// InsertBefore inserts the given nodes, in order, immediately before
// Anchor. The inserted ids may already be attached elsewhere, in which case
// the instruction is a move.
type InsertBefore struct {
	Anchor ElementID
	IDs    []ElementID
}

// Remove detaches the node id (and its subtree) from the target.
type Remove struct {
	ID ElementID
}

// ReplaceWith replaces the node id with the given nodes, in order. The old
// id is invalid afterwards.
type ReplaceWith struct {
	ID  ElementID
	IDs []ElementID
}

// NewEventListener subscribes the element id to events with the given name.
type NewEventListener struct {
	ID    ElementID
	Event string
}

// RemoveEventListener removes a prior subscription.
type RemoveEventListener struct {
	ID    ElementID
	Event string
}

func (AssignID) mutation()            {}
func (CreateElement) mutation()       {}
func (CreateText) mutation()          {}
func (CreatePlaceholder) mutation()   {}
func (SetAttribute) mutation()        {}
func (SetText) mutation()             {}
func (AppendChildren) mutation()      {}
func (InsertBefore) mutation()        {}
func (Remove) mutation()              {}
func (ReplaceWith) mutation()         {}
func (NewEventListener) mutation()    {}
func (RemoveEventListener) mutation() {}

func formatIDs(ids []ElementID) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(id.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (m AssignID) String() string { return fmt.Sprintf("assign-id id=%d", m.ID) }
func (m CreateElement) String() string {
	return fmt.Sprintf("create-element id=%d tag=%s", m.ID, m.Tag)
}
func (m CreateText) String() string {
	return fmt.Sprintf("create-text id=%d value=%q", m.ID, m.Value)
}
func (m CreatePlaceholder) String() string { return fmt.Sprintf("create-placeholder id=%d", m.ID) }
func (m SetAttribute) String() string {
	if m.Remove {
		return fmt.Sprintf("set-attribute id=%d name=%s remove", m.ID, m.Name)
	}
	return fmt.Sprintf("set-attribute id=%d name=%s value=%q", m.ID, m.Name, m.Value)
}
func (m SetText) String() string { return fmt.Sprintf("set-text id=%d value=%q", m.ID, m.Value) }
func (m AppendChildren) String() string {
	return fmt.Sprintf("append-children parent=%d children=%s", m.Parent, formatIDs(m.Children))
}
func (m InsertBefore) String() string {
	return fmt.Sprintf("insert-before anchor=%d ids=%s", m.Anchor, formatIDs(m.IDs))
}
func (m Remove) String() string { return fmt.Sprintf("remove id=%d", m.ID) }
func (m ReplaceWith) String() string {
	return fmt.Sprintf("replace-with id=%d ids=%s", m.ID, formatIDs(m.IDs))
}
func (m NewEventListener) String() string {
	return fmt.Sprintf("new-event-listener id=%d event=%s", m.ID, m.Event)
}
func (m RemoveEventListener) String() string {
	return fmt.Sprintf("remove-event-listener id=%d event=%s", m.ID, m.Event)
}
