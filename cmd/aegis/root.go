package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "Aegis - security policy evaluation engine",
	Long: `Aegis is a request-time security policy evaluation engine.

It applies dependency-ordered rules to request contexts, producing
allow/deny/challenge outcomes moderated by a global security level:
  - Rule store with dependency-ordered evaluation and cycle detection
  - Result cache with TTL/LRU eviction and version invalidation
  - Pluggable contextual risk scoring
  - Hash-chained, tamper-evident audit log with segment rotation
  - Security level switch (MONITOR through MAXIMUM)`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "aegis.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
