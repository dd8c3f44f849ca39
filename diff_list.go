// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"github.com/cockroachdb/swiss"
)

// insertAfter places ids immediately after the run of siblings tail. There
// is no insert-after instruction in the mutation vocabulary, so two
// insert-before calls rotate the nodes into place: the first parks ids in
// front of tail, the second moves tail back in front of ids.
func (vt *VirtualTree) insertAfter(tail, ids []ElementID) {
	vt.emit(InsertBefore{Anchor: tail[0], IDs: ids})
	vt.emit(InsertBefore{Anchor: ids[0], IDs: tail})
}

// diffFragment reconciles a fragment slot. Empty fragments are backed by a
// placeholder element so the slot keeps a stable position among its
// siblings.
func (vt *VirtualTree) diffFragment(s *Scope, old, new Fragment, m *dynMount) {
	switch {
	case len(old.Children) == 0 && len(new.Children) == 0:
		return

	case len(old.Children) == 0:
		// Placeholder out, items in.
		parent := vt.parentOf(m.id)
		items := make([]dynMount, len(new.Children))
		var ids []ElementID
		for i := range new.Children {
			ids = append(ids, vt.createDynamic(s, new.Children[i], &items[i])...)
		}
		vt.emit(ReplaceWith{ID: m.id, IDs: ids})
		vt.setParents(ids, parent)
		vt.releaseElement(m.id)
		m.id = 0
		m.items = items

	case len(new.Children) == 0:
		// Items out, placeholder in.
		var oldIDs []ElementID
		for i := range old.Children {
			oldIDs = vt.dynRootIDs(old.Children[i], &m.items[i], oldIDs)
		}
		parent := vt.parentOf(oldIDs[0])
		ph := vt.assignID(s.id)
		vt.emit(CreatePlaceholder{ID: ph})
		vt.emit(ReplaceWith{ID: oldIDs[0], IDs: []ElementID{ph}})
		for _, id := range oldIDs[1:] {
			vt.emit(Remove{ID: id})
		}
		vt.setParents([]ElementID{ph}, parent)
		for i := range old.Children {
			vt.releaseDynamic(old.Children[i], &m.items[i])
		}
		m.items = nil
		m.id = ph

	case keyedFragment(old) && keyedFragment(new):
		vt.diffKeyedChildren(s, old.Children, new.Children, m)

	default:
		vt.diffUnkeyedChildren(s, old.Children, new.Children, m)
	}
}

// keyedFragment reports whether every item of the fragment carries a key.
// Mixed fragments fall back to positional matching.
func keyedFragment(f Fragment) bool {
	for _, c := range f.Children {
		if itemKey(c) == "" {
			return false
		}
	}
	return true
}

// diffUnkeyedChildren matches fragment items by position: the common prefix
// is diffed pairwise, extra new items are appended, extra old items are
// removed.
func (vt *VirtualTree) diffUnkeyedChildren(s *Scope, old, new []DynamicNode, m *dynMount) {
	shared := min(len(old), len(new))
	items := make([]dynMount, len(new))
	copy(items, m.items[:shared])
	for i := 0; i < shared; i++ {
		vt.diffDynamic(s, old[i], new[i], &items[i])
	}

	if len(new) > shared {
		tail := vt.dynRootIDs(new[shared-1], &items[shared-1], nil)
		parent := vt.parentOf(tail[0])
		var ids []ElementID
		for i := shared; i < len(new); i++ {
			ids = append(ids, vt.createDynamic(s, new[i], &items[i])...)
		}
		vt.insertAfter(tail, ids)
		vt.setParents(ids, parent)
	}
	for i := shared; i < len(old); i++ {
		for _, id := range vt.dynRootIDs(old[i], &m.items[i], nil) {
			vt.emit(Remove{ID: id})
		}
		vt.releaseDynamic(old[i], &m.items[i])
	}
	m.items = items
}

// diffKeyedChildren matches fragment items by key, reusing the mounted
// state (and scopes) of matched items wherever they moved. A longest
// increasing subsequence over the matched old positions picks the items
// that stay put; everything else is moved or created. Duplicate keys match
// their first occurrence and the rest reconcile as unmatched.
func (vt *VirtualTree) diffKeyedChildren(s *Scope, old, new []DynamicNode, m *dynMount) {
	var oldByKey swiss.Map[string, int]
	oldByKey.Init(len(old))
	for i := range old {
		k := itemKey(old[i])
		if _, ok := oldByKey.Get(k); !ok {
			oldByKey.Put(k, i)
		}
	}

	// oldFor[j] is the matched old index for new item j, or -1.
	oldFor := make([]int, len(new))
	usedOld := make([]bool, len(old))
	matched := 0
	for j := range new {
		oldFor[j] = -1
		if i, ok := oldByKey.Get(itemKey(new[j])); ok && !usedOld[i] {
			oldFor[j] = i
			usedOld[i] = true
			matched++
		}
	}

	if matched == 0 {
		vt.replaceFragmentItems(s, old, new, m)
		return
	}

	var firstOld []ElementID
	firstOld = vt.dynRootIDs(old[0], &m.items[0], firstOld)
	parent := vt.parentOf(firstOld[0])

	// Unmatched old items leave the tree before any placement so moves
	// never anchor on a node about to disappear.
	for i := range old {
		if usedOld[i] {
			continue
		}
		for _, id := range vt.dynRootIDs(old[i], &m.items[i], nil) {
			vt.emit(Remove{ID: id})
		}
		vt.releaseDynamic(old[i], &m.items[i])
	}

	items := make([]dynMount, len(new))
	for j := range new {
		if i := oldFor[j]; i >= 0 {
			items[j] = m.items[i]
			vt.diffDynamic(s, old[i], new[j], &items[j])
		} else {
			vt.createDynamic(s, new[j], &items[j])
		}
	}

	// Matched old positions in new order; the LIS over them marks the
	// items that keep their relative order and need no move.
	matchedOld := make([]int, 0, matched)
	for j := range new {
		if oldFor[j] >= 0 {
			matchedOld = append(matchedOld, oldFor[j])
		}
	}
	keep := longestIncreasing(matchedOld)
	stationary := make([]bool, len(new))
	lastStationary := -1
	mi := 0
	for j := range new {
		if oldFor[j] < 0 {
			continue
		}
		if keep[mi] {
			stationary[j] = true
			lastStationary = j
		}
		mi++
	}

	// Place right to left; each item not already in position is inserted
	// before the first root of the item to its right.
	var anchor ElementID
	for j := len(new) - 1; j >= 0; j-- {
		ids := vt.dynRootIDs(new[j], &items[j], nil)
		if !stationary[j] {
			if anchor != 0 {
				vt.emit(InsertBefore{Anchor: anchor, IDs: ids})
			} else {
				tail := vt.dynRootIDs(new[lastStationary], &items[lastStationary], nil)
				vt.insertAfter(tail, ids)
			}
			vt.setParents(ids, parent)
		}
		anchor = ids[0]
	}
	m.items = items
}

// replaceFragmentItems swaps every item of a fragment when no key survived.
func (vt *VirtualTree) replaceFragmentItems(s *Scope, old, new []DynamicNode, m *dynMount) {
	var oldIDs []ElementID
	for i := range old {
		oldIDs = vt.dynRootIDs(old[i], &m.items[i], oldIDs)
	}
	parent := vt.parentOf(oldIDs[0])
	items := make([]dynMount, len(new))
	var ids []ElementID
	for i := range new {
		ids = append(ids, vt.createDynamic(s, new[i], &items[i])...)
	}
	vt.emit(ReplaceWith{ID: oldIDs[0], IDs: ids})
	for _, id := range oldIDs[1:] {
		vt.emit(Remove{ID: id})
	}
	vt.setParents(ids, parent)
	for i := range old {
		vt.releaseDynamic(old[i], &m.items[i])
	}
	m.items = items
}

// longestIncreasing returns, aligned with seq, which elements form one
// longest strictly increasing subsequence.
func longestIncreasing(seq []int) []bool {
	keep := make([]bool, len(seq))
	if len(seq) == 0 {
		return keep
	}
	// tails[l] is the index in seq of the smallest tail of any increasing
	// subsequence of length l+1; prev chains each element to its
	// predecessor in the subsequence it extends.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))
	for i, v := range seq {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		} else {
			prev[i] = -1
		}
	}
	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		keep[i] = true
	}
	return keep
}
