package crawler

import (
	"context"
	"log/slog"

	"github.com/webharvest/webharvest/internal/fingerprint"
	"github.com/webharvest/webharvest/internal/frontier"
	"github.com/webharvest/webharvest/internal/model"
	"github.com/webharvest/webharvest/internal/policy"
	"github.com/webharvest/webharvest/internal/politeness"
)

// Store persists pages with usable text. Implementations absorb their
// own errors; a failed save never stops the crawl.
type Store interface {
	Save(page *model.Page)
}

// Collector observes crawl progress for reporting.
type Collector interface {
	// NotifyFetch counts one fetch that yielded a stored page.
	NotifyFetch()

	// Record observes a stored page's content.
	Record(page *model.Page)
}

// Worker processes URLs from the frontier one at a time: wait for the
// domain's turn, download, extract, classify against previously seen
// content, then either store the page and expand its links or skip it.
//
// Design decision: every collaborator failure is absorbed and logged
// rather than returned because:
//  1. One broken page or flaky host must not halt a long crawl
//  2. The URL's completion record must be written regardless of how
//     processing went, or a resume would refetch it forever
type Worker struct {
	// id distinguishes workers in log output.
	id int

	// frontier supplies URLs and receives discovered links.
	frontier *frontier.Frontier

	// coordinator enforces the per-domain politeness delay.
	coordinator *politeness.Coordinator

	// fetcher downloads pages.
	fetcher Fetcher

	// extractor pulls text and links from fetched pages.
	extractor *Extractor

	// tracker classifies page text against previously seen content.
	// May be shared with other workers or private to this one.
	tracker *fingerprint.Tracker

	// validator filters discovered links. Nil admits every link.
	validator *policy.Validator

	// robots gates downloads on robots.txt rules. Nil skips the check.
	robots *policy.RobotsAgent

	// store persists pages with text. Nil disables persistence.
	store Store

	// collector observes progress. Nil disables collection.
	collector Collector

	logger *slog.Logger
}

// process runs one URL through the full pipeline. The completion record
// is written on every path out.
func (w *Worker) process(ctx context.Context, rawURL string) {
	defer func() {
		if err := w.frontier.Complete(ctx, rawURL); err != nil {
			w.logger.Warn("failed to record completion", "worker", w.id, "url", rawURL, "error", err)
		}
	}()

	w.coordinator.AwaitTurn(rawURL)

	if w.robots != nil && !w.robots.Allowed(ctx, rawURL) {
		w.logger.Debug("blocked by robots.txt", "worker", w.id, "url", rawURL)
		return
	}

	page := w.fetcher.Fetch(ctx, rawURL)
	if page.FetchErr != "" {
		w.logger.Debug("fetch failed", "worker", w.id, "url", rawURL, "error", page.FetchErr)
		return
	}

	links := w.extractor.Extract(page)

	// A page without meaningful text contributes neither content nor
	// links; its machine-generated hrefs are the usual trap surface.
	if page.Text == "" {
		w.logger.Debug("skipping page without content", "worker", w.id, "url", rawURL)
		return
	}

	if dup, reason := w.tracker.Classify(page.URL, page.Text); dup {
		w.logger.Debug("skipping duplicate content", "worker", w.id, "url", rawURL, "reason", reason)
		return
	}

	if w.store != nil {
		w.store.Save(page)
	}
	if w.collector != nil {
		w.collector.NotifyFetch()
		w.collector.Record(page)
	}

	for _, link := range links {
		if w.validator != nil && !w.validator.IsValid(link) {
			continue
		}
		if err := w.frontier.Add(ctx, link); err != nil {
			w.logger.Warn("failed to enqueue link", "worker", w.id, "url", link, "error", err)
		}
	}
}
