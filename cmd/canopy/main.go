// Copyright 2026 The Canopy Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "canopy [command] (flags)",
	Short: "canopy demo/benchmarking tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		demoCmd,
		benchCmd,
	)

	for _, cmd := range []*cobra.Command{demoCmd, benchCmd} {
		cmd.Flags().BoolVarP(
			&verbose, "verbose", "v", false, "enable verbose event logging")
	}

	demoCmd.Flags().IntVarP(
		&demoClicks, "clicks", "n", 5, "number of click events to simulate")
	benchCmd.Flags().IntVar(
		&benchRows, "rows", 1000, "number of keyed rows in the list")
	benchCmd.Flags().IntVar(
		&benchPasses, "passes", 1000, "number of shuffle/render passes")
	benchCmd.Flags().Int64Var(
		&benchSeed, "seed", 1, "shuffle seed")

	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error message.
		os.Exit(1)
	}
}
