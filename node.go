// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import "github.com/cockroachdb/errors"

// VNode is the material part of a single render: a Template reference plus
// the values for its dynamic holes. A fresh VNode is produced on every
// render of a scope; the previous render's VNode is retained only until
// diffing against it completes.
type VNode struct {
	Template *Template

	// Key is the list key when this node is an item of a Fragment.
	Key string

	// Dynamic holds one entry per TemplateDynamic hole.
	Dynamic []DynamicNode
	// Texts holds one entry per TemplateDynamicText hole.
	Texts []string
	// Attrs holds one entry per dynamic attribute hole.
	Attrs []AttrValue

	mount *nodeMount
}

// NewVNode returns a VNode for t with dynamic slots sized to the template's
// hole counts.
func NewVNode(t *Template) *VNode {
	return &VNode{
		Template: t,
		Dynamic:  make([]DynamicNode, t.numDynamic),
		Texts:    make([]string, t.numDynamicText),
		Attrs:    make([]AttrValue, t.numDynamicAttr),
	}
}

func (n *VNode) validate() error {
	t := n.Template
	if t == nil {
		return errors.AssertionFailedf("canopy: VNode without template")
	}
	if len(n.Dynamic) != t.numDynamic || len(n.Texts) != t.numDynamicText ||
		len(n.Attrs) != t.numDynamicAttr {
		return errors.AssertionFailedf(
			"canopy: VNode for template %q has %d/%d/%d dynamic slots, want %d/%d/%d",
			t.name, len(n.Dynamic), len(n.Texts), len(n.Attrs),
			t.numDynamic, t.numDynamicText, t.numDynamicAttr)
	}
	for i, dn := range n.Dynamic {
		if dn == nil {
			return errors.AssertionFailedf(
				"canopy: VNode for template %q has nil dynamic slot %d (use Absent)", t.name, i)
		}
	}
	return nil
}

// DynamicNode is the content of one dynamic node hole: a nested node tree,
// a component invocation, a list of nodes, or an absence placeholder.
type DynamicNode interface {
	dynamicNode()
}

// Nested embeds a nested node tree in a dynamic slot.
type Nested struct {
	Node *VNode
}

// ComponentNode invokes a component in a dynamic slot. Props are opaque to
// the core beyond an equality short-circuit for comparable types. Key
// carries the list key when the component is an item of a Fragment.
type ComponentNode struct {
	Component Component
	Props     any
	Key       string
}

// Fragment is an iteration point: an ordered list of items, each a Nested
// node or a ComponentNode, reconciled by key when every item has one. An
// empty fragment occupies its position with a placeholder so a later render
// has a stable anchor.
type Fragment struct {
	Children []DynamicNode
}

// Absent renders nothing while keeping a stable placeholder anchor.
type Absent struct{}

func (Nested) dynamicNode()        {}
func (ComponentNode) dynamicNode() {}
func (Fragment) dynamicNode()      {}
func (Absent) dynamicNode()        {}

// itemKey returns the list key of a fragment item, or "" if it has none.
func itemKey(dn DynamicNode) string {
	switch d := dn.(type) {
	case Nested:
		return d.Node.Key
	case ComponentNode:
		return d.Key
	}
	return ""
}

// nodeMount records the element ids a VNode's template walk produced. It is
// created when the node is first built and handed from the old to the new
// VNode when a diff keeps the template.
type nodeMount struct {
	// roots[i] is the id of template root i, or 0 when that root is a
	// TemplateDynamic hole (its ids live in dynamic[i]).
	roots []ElementID
	// all contains every id created by the static template walk, in creation
	// order, for wholesale release when the subtree is replaced.
	all []ElementID
	// textTargets[i] is the text node filled from Texts[i].
	textTargets []ElementID
	// attrTargets[i] is the element carrying dynamic attribute i.
	attrTargets []ElementID
	// dynamic[i] is the mount state of dynamic node hole i.
	dynamic []dynMount
}

// dynMount is the mount state of one dynamic slot or fragment item.
type dynMount struct {
	// id is the placeholder id for Absent slots and empty fragments.
	id ElementID
	// scope is the component instance mounted in a ComponentNode slot.
	scope ScopeID
	// items holds per-item state for Fragment slots.
	items []dynMount
}

func newNodeMount(t *Template) *nodeMount {
	return &nodeMount{
		roots:       make([]ElementID, len(t.roots)),
		textTargets: make([]ElementID, t.numDynamicText),
		attrTargets: make([]ElementID, t.numDynamicAttr),
		dynamic:     make([]dynMount, t.numDynamic),
	}
}
