package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webharvest.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webharvest",
		Short: "Polite, resumable web crawler for bounded domains",
		Long: `webharvest crawls a bounded set of domains politely and durably.

The crawl frontier is persisted to a local SQLite database, so an
interrupted crawl resumes exactly where it left off. Requests to the
same domain are spaced out, robots.txt is honored, duplicate and
near-duplicate pages are skipped, and page text is archived as
compressed JSONL partitioned by host and date.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewReportCmd())
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
