package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/webharvest/webharvest/internal/analytics"
)

// TextWriter outputs human-readable crawl summaries.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type TextWriter struct {
	baseWriter

	// topWords is how many ranking entries to print.
	topWords int
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithTopWords overrides how many ranking entries are printed.
func WithTopWords(n int) TextWriterOption {
	return func(w *TextWriter) {
		if n > 0 {
			w.topWords = n
		}
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		topWords:   TopWordCount,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write renders the crawl state in human-readable format.
func (w *TextWriter) Write(state *analytics.State) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, state)
	w.writeTopWords(&sb, state)
	w.writeSubdomains(&sb, state)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the overall crawl numbers.
func (w *TextWriter) writeHeader(sb *strings.Builder, state *analytics.State) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                           CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Unique Pages:       %d\n", state.UniquePages))
	sb.WriteString(fmt.Sprintf("Successful Fetches: %d\n", state.SuccessfulFetches))
	sb.WriteString(fmt.Sprintf("Subdomains:         %d\n", len(state.Subdomains)))
	if state.LongestPageURL != "" {
		sb.WriteString(fmt.Sprintf("Longest Page:       %s (%d words)\n",
			state.LongestPageURL, state.LongestPageWords))
	}
	if !state.UpdatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Last Updated:       %s\n",
			state.UpdatedAt.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString("\n")
}

// writeTopWords writes the word frequency ranking.
func (w *TextWriter) writeTopWords(sb *strings.Builder, state *analytics.State) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("MOST COMMON WORDS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	top := state.TopWords(w.topWords)
	if len(top) == 0 {
		sb.WriteString("  No page text recorded\n\n")
		return
	}

	for i, wc := range top {
		sb.WriteString(fmt.Sprintf("  %3d. %-24s %d\n", i+1, wc.Word, wc.Count))
	}
	sb.WriteString("\n")
}

// writeSubdomains writes the per-host page tally.
func (w *TextWriter) writeSubdomains(sb *strings.Builder, state *analytics.State) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUBDOMAINS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	subdomains := state.SortedSubdomains()
	if len(subdomains) == 0 {
		sb.WriteString("  No subdomains recorded\n\n")
		return
	}

	for _, sc := range subdomains {
		sb.WriteString(fmt.Sprintf("  %-40s %d pages\n", sc.Host, sc.Pages))
	}
	sb.WriteString("\n")
}
