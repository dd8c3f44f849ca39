// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"fmt"
	"log"

	"github.com/canopyui/canopy"
	"github.com/spf13/cobra"
)

var demoClicks int

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "render a counter app and print its mutation stream",
	Long: `
Mounts a small counter component, simulates a series of click events and
prints every mutation batch the tree flushes.
`,
	Args: cobra.ExactArgs(0),
	Run:  runDemo,
}

// printSink writes each flushed batch to stdout, one mutation per line.
type printSink struct {
	batch int
}

func (s *printSink) Apply(ms []canopy.Mutation) error {
	s.batch++
	fmt.Printf("--- batch %d ---\n", s.batch)
	for _, m := range ms {
		fmt.Println(m)
	}
	return nil
}

var counterTmpl = canopy.NewTemplate("demo.counter",
	canopy.El("div",
		canopy.ElAttrs("button",
			[]canopy.TemplateAttribute{canopy.DynamicAttr("click", 0)},
			canopy.StaticText("+1")),
		canopy.El("span", canopy.DynamicText(0)),
	))

func counter(cx *canopy.Context) *canopy.VNode {
	count, setCount := canopy.UseState(cx, func() int { return 0 })
	n := canopy.NewVNode(counterTmpl)
	n.Attrs[0] = canopy.HandlerAttr(func(*canopy.Event) { setCount(count + 1) })
	n.Texts[0] = fmt.Sprintf("count: %d", count)
	return n
}

func runDemo(cmd *cobra.Command, args []string) {
	var opts canopy.Options
	if verbose {
		lel := canopy.MakeLoggingEventListener(canopy.DefaultLogger{})
		opts.EventListener = &lel
	}
	vt := canopy.New(canopy.ComponentFunc(counter), nil, &opts)

	sink := &printSink{}
	if err := vt.Mount(sink); err != nil {
		log.Fatal(err)
	}

	// The button is the second assigned element (div=1, button=2).
	const buttonID canopy.ElementID = 2
	for i := 0; i < demoClicks; i++ {
		if err := vt.EnqueueEvent(buttonID, "click", nil); err != nil {
			log.Fatal(err)
		}
		if err := vt.RenderImmediate(sink); err != nil {
			log.Fatal(err)
		}
	}

	m := vt.Metrics()
	fmt.Print(m.String())
	if err := vt.Close(); err != nil {
		log.Fatal(err)
	}
}
