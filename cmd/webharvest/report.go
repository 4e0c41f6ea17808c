package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/webharvest/webharvest/internal/analytics"
	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize crawl analytics from the saved state",
		Long: `Report reads the analytics state written by a previous crawl and
prints a summary: unique pages stored, successful fetches, the longest page
found, the most common words, and per-subdomain page counts.

Examples:
  # Human-readable summary of the last crawl
  webharvest report

  # Markdown report written to a file
  webharvest report --markdown -o report.md

  # JSON report for downstream tooling
  webharvest report --json`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("data-dir", "",
		"Directory holding the analytics state (default: XDG data directory)")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	jsonReport, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownReport, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonReport && markdownReport {
		return config.ErrConflictingReportFormats
	}

	reportFile, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	if dataDir == "" {
		dataDir = config.XDGDataDir()
	}

	statePath := filepath.Join(dataDir, analytics.StateFileName)
	state, err := analytics.LoadState(statePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no crawl state at %s (run a crawl first)", statePath)
		}
		return fmt.Errorf("failed to load crawl state: %w", err)
	}

	// Determine output destination
	output := cmd.OutOrStdout()
	if reportFile != "" {
		dir := filepath.Dir(reportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(reportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case jsonReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case markdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewTextWriter(output)
	}

	_, err = writer.Write(state)
	return err
}
