package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/webharvest/webharvest/internal/analytics"
)

// MarkdownWriter outputs crawl summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write renders the crawl state in Markdown format.
func (w *MarkdownWriter) Write(state *analytics.State) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, state)
	w.writeTopWords(md, state)
	w.writeSubdomains(md, state)

	return len(md.String()), md.Build()
}

// writeHeader writes the summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, state *analytics.State) {
	md.H1("Crawl Report")
	md.PlainText("")

	longest := "-"
	if state.LongestPageURL != "" {
		longest = "`" + state.LongestPageURL + "` (" +
			strconv.Itoa(state.LongestPageWords) + " words)"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Unique Pages", strconv.Itoa(state.UniquePages)},
			{"Successful Fetches", strconv.FormatInt(state.SuccessfulFetches, 10)},
			{"Subdomains", strconv.Itoa(len(state.Subdomains))},
			{"Longest Page", longest},
			{"Last Updated", state.UpdatedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")
}

// writeTopWords writes the word frequency ranking.
func (w *MarkdownWriter) writeTopWords(md *markdown.Markdown, state *analytics.State) {
	md.H2("Most Common Words")
	md.PlainText("")

	top := state.TopWords(TopWordCount)
	if len(top) == 0 {
		md.PlainText("No page text recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(top))
	for i, wc := range top {
		rows[i] = []string{strconv.Itoa(i + 1), wc.Word, strconv.Itoa(wc.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Word", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSubdomains writes the per-host page tally.
func (w *MarkdownWriter) writeSubdomains(md *markdown.Markdown, state *analytics.State) {
	md.H2("Subdomains")
	md.PlainText("")

	subdomains := state.SortedSubdomains()
	if len(subdomains) == 0 {
		md.PlainText("No subdomains recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(subdomains))
	for i, sc := range subdomains {
		rows[i] = []string{sc.Host, strconv.Itoa(sc.Pages)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Host", "Unique Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}
