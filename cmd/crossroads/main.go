// Command crossroads is the operator entry point: it runs a simulation,
// injects operator events into one already running, and inspects/seeds
// snapshots in a persistence store.
//
// Grounded on the teacher's cmd/worldsim/main.go (flat imperative main:
// open DB, build or restore world state, wire the HTTP API, install a
// signal handler, run the tick loop) restructured into cobra subcommands
// the way codenerd's cmd/nerd splits command registration across
// cmd_*.go files under one rootCmd (SPEC_FULL §1: "built with
// github.com/spf13/cobra, grounded on codenerd's cmd/nerd root command").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "crossroads",
	Short: "crossroads-sim: a deterministic tick-driven multi-agent world simulator",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "crossroads.yaml", "path to YAML run configuration")
	rootCmd.AddCommand(runCmd, injectCmd, snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
