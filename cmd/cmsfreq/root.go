// Package main provides the entry point for the cmsfreq CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for cmsfreq.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cmsfreq",
		Short: "CMS fingerprinting frequency analysis over web crawl data",
		Long: `cmsfreq analyzes a web crawl corpus for CMS fingerprinting patterns.

It loads crawl artifacts referenced by an index file, filters out
unusable captures (bot challenges, error pages, thin responses),
deduplicates sites by normalized URL, and computes frequency statistics
over HTTP headers, meta tags, and script references. On top of the raw
frequencies it derives vendor attributions, header co-occurrence
statistics, dataset-bias warnings, and per-platform signatures.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
