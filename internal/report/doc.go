// Package report renders crawl analytics as Markdown, JSON, or plain
// text summaries.
package report
