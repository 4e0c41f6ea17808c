package frontier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/webharvest/webharvest/internal/database"
	"github.com/webharvest/webharvest/internal/urlutil"
)

// ValidityFunc decides whether a stored URL is still worth crawling.
// The frontier applies it only during the resume scan, so a policy
// change between runs prunes stale pending entries without touching
// the add path.
type ValidityFunc func(url string) bool

// Frontier tracks every URL the crawl knows about and hands out the ones
// not yet downloaded. Records are durable in a FrontierDB; the FIFO queue
// of pending URLs lives in memory and is rebuilt at startup.
//
// Invariants:
//   - at most one durable record per URL identity
//   - every queued URL has a durable record with completed=false
//   - once a record is completed it is never re-enqueued within the
//     same crawl epoch
type Frontier struct {
	// mu guards the queue and serializes durable reads and writes.
	// One lock keeps the check-insert-enqueue sequence atomic under
	// concurrent Add calls from many workers.
	mu sync.Mutex

	// db is the durable record store.
	db *database.FrontierDB

	// queue holds canonical URLs awaiting download, FIFO order.
	queue []string

	// logger records anomalies and progress.
	logger *slog.Logger
}

// New creates a Frontier over an open FrontierDB.
// Call Load before handing the frontier to workers.
func New(db *database.FrontierDB, logger *slog.Logger) *Frontier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Frontier{
		db:     db,
		queue:  make([]string, 0),
		logger: logger,
	}
}

// Load prepares the in-memory queue for a crawl epoch.
//
// On restart the durable store is cleared and the seeds are added fresh.
// On resume the store is scanned once in insertion order and every record
// with completed=false that still passes isValid is enqueued; records the
// scan cannot read are skipped with a log, never fatal. An empty store is
// treated as a fresh run and seeded.
func (f *Frontier) Load(ctx context.Context, seeds []string, restart bool, isValid ValidityFunc) error {
	if restart {
		f.logger.Info("restarting: clearing frontier store", "path", f.db.Path())
		if err := f.db.Clear(ctx); err != nil {
			return err
		}
	}

	total, completed, err := f.db.Count(ctx)
	if err != nil {
		return err
	}

	if total == 0 {
		for _, seed := range seeds {
			if err := f.Add(ctx, seed); err != nil {
				return err
			}
		}
		f.logger.Info("seeded frontier", "seeds", len(seeds))
		return nil
	}

	if isValid == nil {
		isValid = func(string) bool { return true }
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	enqueued := 0
	skipped, err := f.db.Scan(ctx, func(rec database.Record) {
		if rec.Completed || !isValid(rec.URL) {
			return
		}
		f.queue = append(f.queue, rec.URL)
		enqueued++
	})
	if err != nil {
		return err
	}
	if skipped > 0 {
		f.logger.Warn("skipped unreadable frontier records", "skipped", skipped)
	}

	f.logger.Info("resumed frontier",
		"pending", enqueued,
		"total", total,
		"completed", completed,
	)
	return nil
}

// Add registers a URL, creating a durable record and enqueueing it if its
// identity has never been seen. A URL whose record already exists, in any
// completion state, is a no-op: the frontier deduplicates by URL identity,
// independent of content dedup. Safe for concurrent use.
func (f *Frontier) Add(ctx context.Context, rawURL string) error {
	canonical := urlutil.Normalize(rawURL)
	urlHash := urlutil.Hash(canonical)

	f.mu.Lock()
	defer f.mu.Unlock()

	inserted, err := f.db.Insert(ctx, database.Record{URLHash: urlHash, URL: canonical})
	if err != nil {
		return err
	}
	if inserted {
		f.queue = append(f.queue, canonical)
	}
	return nil
}

// Next removes and returns the head of the queue.
// Returns ("", false) when the queue is empty. No two callers ever
// receive the same URL.
func (f *Frontier) Next() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return "", false
	}
	url := f.queue[0]
	f.queue = f.queue[1:]
	return url, true
}

// Complete marks a URL's durable record as completed. Completing a URL
// that was never added is logged as an anomaly but still recorded, so a
// resumed crawl will not revisit it (original seed-list edge cases reach
// this path).
func (f *Frontier) Complete(ctx context.Context, rawURL string) error {
	canonical := urlutil.Normalize(rawURL)
	urlHash := urlutil.Hash(canonical)

	f.mu.Lock()
	defer f.mu.Unlock()

	rec, err := f.db.Get(ctx, urlHash)
	if err != nil {
		return err
	}
	if rec == nil {
		f.logger.Error("completed unknown URL", "url", canonical)
	}

	return f.db.MarkCompleted(ctx, urlHash, canonical)
}

// Pending returns the number of URLs currently queued.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}
