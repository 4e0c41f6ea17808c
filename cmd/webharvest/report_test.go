package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/webharvest/webharvest/internal/analytics"
	"github.com/webharvest/webharvest/internal/model"
)

// TestNewReportCmd tests the report command creation.
func TestNewReportCmd(t *testing.T) {
	t.Parallel()

	cmd := NewReportCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "report" {
			t.Errorf("expected use 'report', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has json flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("json")
		if flag == nil {
			t.Fatal("expected json flag")
		}
		if flag.Shorthand != "j" {
			t.Errorf("expected shorthand 'j', got %q", flag.Shorthand)
		}
	})

	t.Run("has markdown flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("markdown")
		if flag == nil {
			t.Fatal("expected markdown flag")
		}
		if flag.Shorthand != "m" {
			t.Errorf("expected shorthand 'm', got %q", flag.Shorthand)
		}
	})

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
	})

	t.Run("has data-dir flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("data-dir") == nil {
			t.Fatal("expected data-dir flag")
		}
	})
}

// writeTestState saves a small analytics state into dir and returns
// the directory.
func writeTestState(t *testing.T, dir string) {
	t.Helper()

	c := analytics.NewCollector(filepath.Join(dir, analytics.StateFileName), nil)
	c.NotifyFetch()
	c.NotifyFetch()
	c.Record(&model.Page{
		URL:  "http://www.ics.uci.edu/about",
		Text: "graduate research in machine learning and distributed systems",
	})
	if err := c.Save(); err != nil {
		t.Fatalf("failed to save test state: %v", err)
	}
}

// TestRunReportCmd tests report generation from a saved state.
func TestRunReportCmd(t *testing.T) {
	t.Run("errors when no state exists", func(t *testing.T) {
		root := NewRootCmd()
		root.SetArgs([]string{"report", "--data-dir", t.TempDir()})

		err := root.Execute()
		if err == nil {
			t.Fatal("expected error when no state exists")
		}
		if !strings.Contains(err.Error(), "no crawl state") {
			t.Errorf("expected 'no crawl state' error, got: %v", err)
		}
	})

	t.Run("errors on conflicting formats", func(t *testing.T) {
		dir := t.TempDir()
		writeTestState(t, dir)

		root := NewRootCmd()
		root.SetArgs([]string{"report", "--json", "--markdown", "--data-dir", dir})

		err := root.Execute()
		if err == nil {
			t.Fatal("expected error for conflicting formats")
		}
		if !strings.Contains(err.Error(), "conflicting report formats") {
			t.Errorf("expected 'conflicting report formats' error, got: %v", err)
		}
	})

	t.Run("writes text report to stdout", func(t *testing.T) {
		dir := t.TempDir()
		writeTestState(t, dir)

		var buf bytes.Buffer
		root := NewRootCmd()
		root.SetOut(&buf)
		root.SetArgs([]string{"report", "--data-dir", dir})

		if err := root.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "CRAWL REPORT") {
			t.Errorf("expected report banner, got %q", output)
		}
		if !strings.Contains(output, "www.ics.uci.edu") {
			t.Errorf("expected subdomain in report, got %q", output)
		}
	})

	t.Run("writes JSON report", func(t *testing.T) {
		dir := t.TempDir()
		writeTestState(t, dir)

		var buf bytes.Buffer
		root := NewRootCmd()
		root.SetOut(&buf)
		root.SetArgs([]string{"report", "--json", "--data-dir", dir})

		if err := root.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("expected valid JSON output, got error: %v", err)
		}
		if decoded["unique_pages"] != float64(1) {
			t.Errorf("expected unique_pages 1, got %v", decoded["unique_pages"])
		}
	})

	t.Run("writes markdown report", func(t *testing.T) {
		dir := t.TempDir()
		writeTestState(t, dir)

		var buf bytes.Buffer
		root := NewRootCmd()
		root.SetOut(&buf)
		root.SetArgs([]string{"report", "--markdown", "--data-dir", dir})

		if err := root.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "# Crawl Report") {
			t.Errorf("expected markdown heading, got %q", buf.String())
		}
	})

	t.Run("writes report to nested output file", func(t *testing.T) {
		dir := t.TempDir()
		writeTestState(t, dir)
		outputPath := filepath.Join(t.TempDir(), "sub", "nested", "report.md")

		root := NewRootCmd()
		root.SetArgs([]string{"report", "--markdown", "-o", outputPath, "--data-dir", dir})

		if err := root.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read output file: %v", err)
		}
		if !bytes.Contains(content, []byte("# Crawl Report")) {
			t.Error("expected markdown report in output file")
		}
	})
}
