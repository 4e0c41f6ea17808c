// Package analytics aggregates crawl statistics: unique pages, word
// frequencies, the longest page, and per-subdomain page counts. The
// collector snapshots its state to a JSON file periodically so the
// report command can summarize a crawl even after a crash.
package analytics
