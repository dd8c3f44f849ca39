// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package canopy

import (
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
)

// TestReconcileKeyedList drives a keyed list through mount and re-render
// commands and compares the emitted mutation stream.
//
// Commands:
//
//	mount keys=a,b,c    create the tree and mount it
//	render keys=c,a,b   update the key list and run one render pass
//	render              empty the list and run one render pass
func TestReconcileKeyedList(t *testing.T) {
	itemTmpl := NewTemplate("dd.item", DynamicText(0))
	ulTmpl := NewTemplate("dd.list", El("ul", Dynamic(0)))

	var vt *VirtualTree
	var sink RecordingSink
	var setKeys func([]string)

	parseKeys := func(td *datadriven.TestData) []string {
		if !td.HasArg("keys") {
			return nil
		}
		var raw string
		td.ScanArgs(t, "keys", &raw)
		if raw == "" {
			return nil
		}
		return strings.Split(raw, ",")
	}
	buildList := func(initial []string) Component {
		return ComponentFunc(func(cx *Context) *VNode {
			keys, set := UseState(cx, func() []string { return initial })
			setKeys = set
			items := make([]DynamicNode, len(keys))
			for i, k := range keys {
				item := NewVNode(itemTmpl)
				item.Key = k
				item.Texts[0] = k
				items[i] = Nested{Node: item}
			}
			n := NewVNode(ulTmpl)
			n.Dynamic[0] = Fragment{Children: items}
			return n
		})
	}

	datadriven.RunTest(t, "testdata/keyed_list", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "mount":
			vt = New(buildList(parseKeys(td)), nil, nil)
			require.NoError(t, vt.Mount(&sink))
			out := sink.String()
			sink.Take()
			return out

		case "render":
			setKeys(parseKeys(td))
			require.NoError(t, vt.RenderImmediate(&sink))
			out := sink.String()
			sink.Take()
			return out

		default:
			td.Fatalf(t, "unknown command %q", td.Cmd)
			return ""
		}
	})
}
