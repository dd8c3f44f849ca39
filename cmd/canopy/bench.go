// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/canopyui/canopy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
)

var (
	benchRows   int
	benchPasses int
	benchSeed   int64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "shuffle a keyed list and measure reconciliation throughput",
	Args:  cobra.ExactArgs(0),
	Run:   runBench,
}

var benchRowTmpl = canopy.NewTemplate("bench.row",
	canopy.El("li", canopy.DynamicText(0)))
var benchListTmpl = canopy.NewTemplate("bench.list",
	canopy.El("ul", canopy.Dynamic(0)))

func runBench(cmd *cobra.Command, args []string) {
	rng := rand.New(rand.NewSource(benchSeed))
	keys := make([]string, benchRows)
	for i := range keys {
		keys[i] = fmt.Sprintf("row-%d", i)
	}

	var setKeys func([]string)
	list := canopy.ComponentFunc(func(cx *canopy.Context) *canopy.VNode {
		cur, set := canopy.UseState(cx, func() []string { return keys })
		setKeys = set
		items := make([]canopy.DynamicNode, len(cur))
		for i, k := range cur {
			row := canopy.NewVNode(benchRowTmpl)
			row.Key = k
			row.Texts[0] = k
			items[i] = canopy.Nested{Node: row}
		}
		n := canopy.NewVNode(benchListTmpl)
		n.Dynamic[0] = canopy.Fragment{Children: items}
		return n
	})

	renderLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "canopy_render_latency_seconds",
		Buckets: prometheus.ExponentialBuckets(1e-6, 2, 20),
	})
	opts := canopy.Options{RenderLatency: renderLatency}
	if verbose {
		lel := canopy.MakeLoggingEventListener(canopy.DefaultLogger{})
		opts.EventListener = &lel
	}
	vt := canopy.New(list, nil, &opts)
	if err := vt.Mount(canopy.DiscardSink{}); err != nil {
		log.Fatal(err)
	}

	start := time.Now()
	for i := 0; i < benchPasses; i++ {
		shuffled := append([]string(nil), keys...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		setKeys(shuffled)
		if err := vt.RenderImmediate(canopy.DiscardSink{}); err != nil {
			log.Fatal(err)
		}
	}
	elapsed := time.Since(start)

	m := vt.Metrics()
	fmt.Print(m.String())
	fmt.Printf("%d passes over %d rows in %s (%.1f passes/sec, %.0f mutations/sec)\n",
		benchPasses, benchRows, elapsed.Round(time.Millisecond),
		float64(benchPasses)/elapsed.Seconds(),
		float64(m.MutationsEmitted)/elapsed.Seconds())

	var dm dto.Metric
	if err := renderLatency.Write(&dm); err == nil && dm.Histogram != nil {
		h := dm.Histogram
		fmt.Printf("render latency: count=%d mean=%.3fms\n",
			h.GetSampleCount(),
			h.GetSampleSum()/float64(h.GetSampleCount())*1e3)
	}

	if err := vt.Close(); err != nil {
		log.Fatal(err)
	}
}
