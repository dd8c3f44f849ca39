// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// TemplateNodeKind discriminates the static node variants of a template.
type TemplateNodeKind uint8

const (
	// TemplateElement is a static element with a tag, attributes and children.
	TemplateElement TemplateNodeKind = iota
	// TemplateText is static text.
	TemplateText
	// TemplateDynamicText is a numbered hole filled from VNode.Texts.
	TemplateDynamicText
	// TemplateDynamic is a numbered hole filled from VNode.Dynamic.
	TemplateDynamic
)

// TemplateAttribute describes one attribute of a template element: either a
// static name/value pair or a numbered hole filled from VNode.Attrs.
type TemplateAttribute struct {
	Name    string
	Value   string
	Dynamic bool
	Index   int
}

// StaticAttr returns a static attribute.
func StaticAttr(name, value string) TemplateAttribute {
	return TemplateAttribute{Name: name, Value: value}
}

// DynamicAttr returns a dynamic attribute hole. For handler-valued slots the
// name is the event name subscribed to.
func DynamicAttr(name string, index int) TemplateAttribute {
	return TemplateAttribute{Name: name, Dynamic: true, Index: index}
}

// TemplateNode is one node of a template's static shape.
type TemplateNode struct {
	Kind     TemplateNodeKind
	Tag      string
	Attrs    []TemplateAttribute
	Children []TemplateNode
	Text     string
	Index    int
}

// El returns a static element node without attributes.
func El(tag string, children ...TemplateNode) TemplateNode {
	return TemplateNode{Kind: TemplateElement, Tag: tag, Children: children}
}

// ElAttrs returns a static element node with attributes.
func ElAttrs(tag string, attrs []TemplateAttribute, children ...TemplateNode) TemplateNode {
	return TemplateNode{Kind: TemplateElement, Tag: tag, Attrs: attrs, Children: children}
}

// StaticText returns a static text node.
func StaticText(text string) TemplateNode {
	return TemplateNode{Kind: TemplateText, Text: text}
}

// DynamicText returns a dynamic text hole.
func DynamicText(index int) TemplateNode {
	return TemplateNode{Kind: TemplateDynamicText, Index: index}
}

// Dynamic returns a dynamic node hole.
func Dynamic(index int) TemplateNode {
	return TemplateNode{Kind: TemplateDynamic, Index: index}
}

// Template is the immutable static shape of one render site: a tree of
// static tags, attributes and text with numbered holes for dynamic nodes,
// dynamic attributes and dynamic text. Templates are compared by pointer
// identity during diffing; NewTemplate interns shapes so that repeated
// registrations of the same source site return the same pointer.
type Template struct {
	name  string
	roots []TemplateNode
	hash  uint64

	numDynamic     int
	numDynamicText int
	numDynamicAttr int

	// dynAttrNames maps a dynamic attribute index to its attribute (or
	// event) name, so diffing can emit the right mutation without walking
	// the shape.
	dynAttrNames []string
}

// Name returns the template's source-site name.
func (t *Template) Name() string { return t.name }

// Hash returns the template's shape hash.
func (t *Template) Hash() uint64 { return t.hash }

// Roots returns the template's root nodes. The returned slice must not be
// mutated.
func (t *Template) Roots() []TemplateNode { return t.roots }

var templateRegistry = struct {
	sync.Mutex
	byHash map[uint64][]*Template
}{byHash: make(map[uint64][]*Template)}

// NewTemplate builds and interns a template. Hole indices of each category
// must be dense starting at zero; a malformed shape panics since templates
// are constructed by generated or hand-maintained code, not at render time.
func NewTemplate(name string, roots ...TemplateNode) *Template {
	if len(roots) == 0 {
		panic(errors.AssertionFailedf("canopy: template %q has no roots", name))
	}
	t := &Template{name: name, roots: roots}
	var seenDynamic, seenText, seenAttr []bool
	var walk func(n *TemplateNode)
	walk = func(n *TemplateNode) {
		switch n.Kind {
		case TemplateElement:
			for i := range n.Attrs {
				if n.Attrs[i].Dynamic {
					seenAttr = markIndex(seenAttr, n.Attrs[i].Index)
					for len(t.dynAttrNames) <= n.Attrs[i].Index {
						t.dynAttrNames = append(t.dynAttrNames, "")
					}
					t.dynAttrNames[n.Attrs[i].Index] = n.Attrs[i].Name
				}
			}
			for i := range n.Children {
				walk(&n.Children[i])
			}
		case TemplateDynamicText:
			seenText = markIndex(seenText, n.Index)
		case TemplateDynamic:
			seenDynamic = markIndex(seenDynamic, n.Index)
		}
	}
	for i := range roots {
		walk(&roots[i])
	}
	t.numDynamic = checkDense(name, "dynamic node", seenDynamic)
	t.numDynamicText = checkDense(name, "dynamic text", seenText)
	t.numDynamicAttr = checkDense(name, "dynamic attribute", seenAttr)
	t.hash = hashTemplate(t)

	templateRegistry.Lock()
	defer templateRegistry.Unlock()
	for _, existing := range templateRegistry.byHash[t.hash] {
		if existing.name == t.name && sameShape(existing.roots, t.roots) {
			return existing
		}
	}
	templateRegistry.byHash[t.hash] = append(templateRegistry.byHash[t.hash], t)
	return t
}

func markIndex(seen []bool, idx int) []bool {
	for len(seen) <= idx {
		seen = append(seen, false)
	}
	seen[idx] = true
	return seen
}

func checkDense(name, what string, seen []bool) int {
	for i, ok := range seen {
		if !ok {
			panic(errors.AssertionFailedf(
				"canopy: template %q: %s hole %d missing (indices must be dense)", name, what, i))
		}
	}
	return len(seen)
}

func hashTemplate(t *Template) uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = d.Write(buf[:])
	}
	writeStr := func(s string) {
		writeInt(len(s))
		_, _ = d.WriteString(s)
	}
	writeStr(t.name)
	var walk func(n *TemplateNode)
	walk = func(n *TemplateNode) {
		writeInt(int(n.Kind))
		writeStr(n.Tag)
		writeStr(n.Text)
		writeInt(n.Index)
		writeInt(len(n.Attrs))
		for i := range n.Attrs {
			a := &n.Attrs[i]
			writeStr(a.Name)
			writeStr(a.Value)
			if a.Dynamic {
				writeInt(1)
			} else {
				writeInt(0)
			}
			writeInt(a.Index)
		}
		writeInt(len(n.Children))
		for i := range n.Children {
			walk(&n.Children[i])
		}
	}
	writeInt(len(t.roots))
	for i := range t.roots {
		walk(&t.roots[i])
	}
	return d.Sum64()
}

func sameShape(a, b []TemplateNode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := &a[i], &b[i]
		if x.Kind != y.Kind || x.Tag != y.Tag || x.Text != y.Text || x.Index != y.Index {
			return false
		}
		if len(x.Attrs) != len(y.Attrs) {
			return false
		}
		for j := range x.Attrs {
			if x.Attrs[j] != y.Attrs[j] {
				return false
			}
		}
		if !sameShape(x.Children, y.Children) {
			return false
		}
	}
	return true
}
