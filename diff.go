// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"github.com/canopyui/canopy/internal/invariants"
	"github.com/cockroachdb/errors"
)

// createNode builds the node's whole subtree in detached form, emitting the
// creation mutations in pre-order, and returns the ids of the template
// roots. The caller attaches the roots (AppendChildren, InsertBefore or
// ReplaceWith) and fixes up their parent links via setParents.
func (vt *VirtualTree) createNode(s *Scope, n *VNode) []ElementID {
	if err := n.validate(); err != nil {
		panic(err)
	}
	n.mount = newNodeMount(n.Template)
	roots := n.Template.roots
	var rootIDs []ElementID
	for i := range roots {
		rootIDs = append(rootIDs, vt.createTemplateNode(s, n, &roots[i], i)...)
	}
	return rootIDs
}

// createTemplateNode builds one static template node (and its subtree).
// rootIdx is the template root index, or -1 for non-root nodes.
func (vt *VirtualTree) createTemplateNode(
	s *Scope, n *VNode, tn *TemplateNode, rootIdx int,
) []ElementID {
	switch tn.Kind {
	case TemplateElement:
		id := vt.assignID(s.id)
		n.mount.all = append(n.mount.all, id)
		if rootIdx >= 0 {
			n.mount.roots[rootIdx] = id
		}
		vt.emit(CreateElement{ID: id, Tag: tn.Tag})
		for i := range tn.Attrs {
			a := &tn.Attrs[i]
			if !a.Dynamic {
				vt.emit(SetAttribute{ID: id, Name: a.Name, Value: a.Value})
				continue
			}
			n.mount.attrTargets[a.Index] = id
			vt.applyAttr(id, a.Name, AttrValue{Kind: AttrNone}, n.Attrs[a.Index], true)
		}
		var children []ElementID
		for i := range tn.Children {
			children = append(children, vt.createTemplateNode(s, n, &tn.Children[i], -1)...)
		}
		if len(children) > 0 {
			vt.emit(AppendChildren{Parent: id, Children: children})
			vt.setParents(children, id)
		}
		return []ElementID{id}

	case TemplateText:
		id := vt.assignID(s.id)
		n.mount.all = append(n.mount.all, id)
		if rootIdx >= 0 {
			n.mount.roots[rootIdx] = id
		}
		vt.emit(CreateText{ID: id, Value: tn.Text})
		return []ElementID{id}

	case TemplateDynamicText:
		id := vt.assignID(s.id)
		n.mount.all = append(n.mount.all, id)
		if rootIdx >= 0 {
			n.mount.roots[rootIdx] = id
		}
		n.mount.textTargets[tn.Index] = id
		vt.emit(CreateText{ID: id})
		vt.emit(SetText{ID: id, Value: n.Texts[tn.Index]})
		return []ElementID{id}

	case TemplateDynamic:
		return vt.createDynamic(s, n.Dynamic[tn.Index], &n.mount.dynamic[tn.Index])

	default:
		panic(errors.AssertionFailedf("canopy: unknown template node kind %d", tn.Kind))
	}
}

// createDynamic builds the content of one dynamic slot (or fragment item)
// in detached form and returns its root ids. The returned slice is never
// empty: absences and empty fragments materialize a placeholder so the slot
// keeps a stable anchor.
func (vt *VirtualTree) createDynamic(s *Scope, dn DynamicNode, m *dynMount) []ElementID {
	switch d := dn.(type) {
	case Absent:
		id := vt.assignID(s.id)
		m.id = id
		vt.emit(CreatePlaceholder{ID: id})
		return []ElementID{id}

	case Nested:
		return vt.createNode(s, d.Node)

	case ComponentNode:
		child := vt.createScope(s, d.Component, d.Props, d.Key)
		m.scope = child.id
		node := vt.renderScopeNode(child)
		ids := vt.createNode(child, node)
		child.lastNode = node
		return ids

	case Fragment:
		if len(d.Children) == 0 {
			id := vt.assignID(s.id)
			m.id = id
			vt.emit(CreatePlaceholder{ID: id})
			return []ElementID{id}
		}
		m.items = make([]dynMount, len(d.Children))
		var ids []ElementID
		for i := range d.Children {
			ids = append(ids, vt.createDynamic(s, d.Children[i], &m.items[i])...)
		}
		return ids

	default:
		panic(errors.AssertionFailedf("canopy: unknown dynamic node %T", dn))
	}
}

// applyAttr emits the mutations (and handler table updates) that take an
// attribute slot from old to new.
func (vt *VirtualTree) applyAttr(id ElementID, name string, old, new AttrValue, creating bool) {
	if old.Kind == AttrHandler && new.Kind != AttrHandler {
		vt.removeHandler(id, name)
		vt.emit(RemoveEventListener{ID: id, Event: name})
	}
	switch new.Kind {
	case AttrText:
		vt.emit(SetAttribute{ID: id, Name: name, Value: new.Text})
	case AttrNone:
		if !creating && old.Kind == AttrText {
			vt.emit(SetAttribute{ID: id, Name: name, Remove: true})
		}
	case AttrHandler:
		if old.Kind == AttrText {
			vt.emit(SetAttribute{ID: id, Name: name, Remove: true})
		}
		vt.setHandler(id, name, new.Handler)
		if old.Kind != AttrHandler {
			vt.emit(NewEventListener{ID: id, Event: name})
		}
	}
}

// diffNode computes the mutations transforming the mounted tree old into
// new. Both nodes belong to scope s. On return, new carries the mount state
// and old must not be used again.
func (vt *VirtualTree) diffNode(s *Scope, old, new *VNode) {
	if err := new.validate(); err != nil {
		panic(err)
	}
	if old.Template != new.Template {
		vt.replaceNode(s, old, new)
		return
	}
	m := old.mount
	new.mount = m
	t := new.Template

	for i := range new.Texts {
		if old.Texts[i] != new.Texts[i] {
			vt.emit(SetText{ID: m.textTargets[i], Value: new.Texts[i]})
		}
	}
	for i := range new.Attrs {
		if !sameAttrValue(old.Attrs[i], new.Attrs[i]) {
			vt.applyAttr(m.attrTargets[i], t.dynAttrNames[i], old.Attrs[i], new.Attrs[i], false)
		} else if new.Attrs[i].Kind == AttrHandler {
			// Same-kind handler: swap the closure in the dispatch table so
			// the latest render's captures win; no mutation needed.
			vt.setHandler(m.attrTargets[i], t.dynAttrNames[i], new.Attrs[i].Handler)
		}
	}
	for i := range new.Dynamic {
		vt.diffDynamic(s, old.Dynamic[i], new.Dynamic[i], &m.dynamic[i])
	}
}

// replaceNode swaps a whole subtree: the new tree is built detached, a
// single ReplaceWith retargets the old node's first root, trailing old
// roots are removed, and the old subtree's ids are released.
func (vt *VirtualTree) replaceNode(s *Scope, old, new *VNode) {
	oldIDs := vt.nodeRootIDs(old, nil)
	if invariants.Enabled && len(oldIDs) == 0 {
		panic(errors.AssertionFailedf("canopy: replacing unmounted node"))
	}
	parent := vt.parentOf(oldIDs[0])
	newIDs := vt.createNode(s, new)
	vt.emit(ReplaceWith{ID: oldIDs[0], IDs: newIDs})
	for _, id := range oldIDs[1:] {
		vt.emit(Remove{ID: id})
	}
	vt.setParents(newIDs, parent)
	vt.releaseNode(old)
}

// diffDynamic reconciles one dynamic slot. m is the slot's mount state; it
// is updated in place to describe the new content.
func (vt *VirtualTree) diffDynamic(s *Scope, old, new DynamicNode, m *dynMount) {
	switch o := old.(type) {
	case Absent:
		if _, ok := new.(Absent); ok {
			// Absence to absence: the placeholder stays, nothing to emit.
			return
		}
		vt.replaceDynamic(s, old, new, m)

	case Nested:
		n, ok := new.(Nested)
		if !ok {
			vt.replaceDynamic(s, old, new, m)
			return
		}
		vt.diffNode(s, o.Node, n.Node)

	case ComponentNode:
		n, ok := new.(ComponentNode)
		if !ok || componentIdentity(o.Component) != componentIdentity(n.Component) ||
			o.Key != n.Key {
			vt.replaceDynamic(s, old, new, m)
			return
		}
		child := vt.mustScope(m.scope)
		sameProps := samePropsValue(child.props, n.Props)
		child.props = n.Props
		if sameProps && !child.dirty && child.pendingErr == nil {
			// Memo shortcut: identical comparable props and a clean scope
			// mean the subtree cannot have changed.
			return
		}
		child.dirty = false
		vt.renderAndDiffScope(child)

	case Fragment:
		n, ok := new.(Fragment)
		if !ok {
			vt.replaceDynamic(s, old, new, m)
			return
		}
		vt.diffFragment(s, o, n, m)

	default:
		panic(errors.AssertionFailedf("canopy: unknown dynamic node %T", old))
	}
}

// renderAndDiffScope re-runs a scope's component and diffs the fresh tree
// against the committed one.
func (vt *VirtualTree) renderAndDiffScope(s *Scope) {
	node := vt.renderScopeNode(s)
	vt.diffNode(s, s.lastNode, node)
	s.lastNode = node
}

// replaceDynamic swaps the whole content of a dynamic slot, destroying any
// scopes mounted in the old content.
func (vt *VirtualTree) replaceDynamic(s *Scope, old, new DynamicNode, m *dynMount) {
	oldIDs := vt.dynRootIDs(old, m, nil)
	parent := vt.parentOf(oldIDs[0])
	var newM dynMount
	newIDs := vt.createDynamic(s, new, &newM)
	vt.emit(ReplaceWith{ID: oldIDs[0], IDs: newIDs})
	for _, id := range oldIDs[1:] {
		vt.emit(Remove{ID: id})
	}
	vt.setParents(newIDs, parent)
	vt.releaseDynamic(old, m)
	*m = newM
}

// nodeRootIDs appends the current ids of n's template roots to acc.
func (vt *VirtualTree) nodeRootIDs(n *VNode, acc []ElementID) []ElementID {
	roots := n.Template.roots
	for i := range roots {
		if roots[i].Kind == TemplateDynamic {
			idx := roots[i].Index
			acc = vt.dynRootIDs(n.Dynamic[idx], &n.mount.dynamic[idx], acc)
		} else {
			acc = append(acc, n.mount.roots[i])
		}
	}
	return acc
}

// dynRootIDs appends the current root ids of a mounted dynamic slot to acc.
func (vt *VirtualTree) dynRootIDs(dn DynamicNode, m *dynMount, acc []ElementID) []ElementID {
	switch d := dn.(type) {
	case Absent:
		return append(acc, m.id)
	case Nested:
		return vt.nodeRootIDs(d.Node, acc)
	case ComponentNode:
		child := vt.mustScope(m.scope)
		return vt.nodeRootIDs(child.lastNode, acc)
	case Fragment:
		if len(d.Children) == 0 {
			return append(acc, m.id)
		}
		for i := range d.Children {
			acc = vt.dynRootIDs(d.Children[i], &m.items[i], acc)
		}
		return acc
	default:
		panic(errors.AssertionFailedf("canopy: unknown dynamic node %T", dn))
	}
}

// releaseNode releases every element id in n's subtree and destroys every
// scope mounted within it. It emits no mutations.
func (vt *VirtualTree) releaseNode(n *VNode) {
	if n.mount == nil {
		return
	}
	for _, id := range n.mount.all {
		vt.releaseElement(id)
	}
	for i := range n.Dynamic {
		vt.releaseDynamic(n.Dynamic[i], &n.mount.dynamic[i])
	}
	n.mount = nil
}

func (vt *VirtualTree) releaseDynamic(dn DynamicNode, m *dynMount) {
	switch d := dn.(type) {
	case Absent:
		vt.releaseElement(m.id)
	case Nested:
		vt.releaseNode(d.Node)
	case ComponentNode:
		vt.destroyScope(m.scope)
	case Fragment:
		if len(d.Children) == 0 {
			vt.releaseElement(m.id)
			return
		}
		for i := range d.Children {
			vt.releaseDynamic(d.Children[i], &m.items[i])
		}
	}
}
