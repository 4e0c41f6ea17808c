package crawler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/webharvest/webharvest/internal/fingerprint"
	"github.com/webharvest/webharvest/internal/frontier"
	"github.com/webharvest/webharvest/internal/policy"
	"github.com/webharvest/webharvest/internal/politeness"
)

// DefaultWorkerCount is the number of concurrent workers when none is
// configured.
const DefaultWorkerCount = 4

// defaultPollInterval is how long an idle worker waits before checking
// the frontier again while other workers are still busy.
const defaultPollInterval = 100 * time.Millisecond

// Deps bundles the collaborators every worker needs. Frontier,
// Coordinator, Fetcher, Extractor, and Tracker are required; the rest
// may be nil to disable the corresponding behavior.
type Deps struct {
	// Frontier supplies URLs and receives discovered links.
	Frontier *frontier.Frontier

	// Coordinator enforces per-domain politeness.
	Coordinator *politeness.Coordinator

	// Fetcher downloads pages.
	Fetcher Fetcher

	// Extractor pulls text and links out of fetched pages.
	Extractor *Extractor

	// Tracker classifies content across the whole crawl. Workers share
	// it unless WithPerWorkerTrackers is set.
	Tracker *fingerprint.Tracker

	// Validator filters discovered links before they enter the frontier.
	Validator *policy.Validator

	// Robots gates downloads on robots.txt rules.
	Robots *policy.RobotsAgent

	// Store persists pages with usable text.
	Store Store

	// Collector observes crawl progress.
	Collector Collector

	// Logger receives worker and supervisor events. Nil uses the default.
	Logger *slog.Logger
}

// Supervisor runs a fixed pool of workers until the frontier drains
// or the context is cancelled.
type Supervisor struct {
	deps         Deps
	workerCount  int
	pollInterval time.Duration

	// trackerFactory, when set, gives each worker a private tracker
	// instead of the shared one from Deps.
	trackerFactory func() *fingerprint.Tracker

	// active counts workers currently between claiming a URL and
	// finishing it. The pool drains when a worker finds the frontier
	// empty and active reaches zero.
	active atomic.Int64

	logger *slog.Logger
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithWorkerCount sets the size of the worker pool.
func WithWorkerCount(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithPollInterval sets how often idle workers re-check the frontier.
func WithPollInterval(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithPerWorkerTrackers gives each worker its own content tracker from
// the factory instead of the shared one.
//
// Design decision: the shared tracker is the default because it
// deduplicates across the whole crawl; per-worker trackers trade some
// duplicate detection for zero cross-worker contention on the tracker
// lock. The switch exists so large crawls can make that trade
// explicitly.
func WithPerWorkerTrackers(factory func() *fingerprint.Tracker) SupervisorOption {
	return func(s *Supervisor) {
		s.trackerFactory = factory
	}
}

// NewSupervisor creates a supervisor over the given collaborators.
func NewSupervisor(deps Deps, opts ...SupervisorOption) *Supervisor {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Supervisor{
		deps:         deps,
		workerCount:  DefaultWorkerCount,
		pollInterval: defaultPollInterval,
		logger:       deps.Logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run starts the worker pool and blocks until every worker has drained
// or the context is cancelled. It returns the context error on
// cancellation, nil on a clean drain.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < s.workerCount; i++ {
		w := &Worker{
			id:          i,
			frontier:    s.deps.Frontier,
			coordinator: s.deps.Coordinator,
			fetcher:     s.deps.Fetcher,
			extractor:   s.deps.Extractor,
			tracker:     s.workerTracker(),
			validator:   s.deps.Validator,
			robots:      s.deps.Robots,
			store:       s.deps.Store,
			collector:   s.deps.Collector,
			logger:      s.logger,
		}
		g.Go(func() error {
			return s.runWorker(ctx, w)
		})
	}

	return g.Wait()
}

func (s *Supervisor) workerTracker() *fingerprint.Tracker {
	if s.trackerFactory != nil {
		return s.trackerFactory()
	}
	return s.deps.Tracker
}

// runWorker loops one worker over the frontier.
//
// The active counter is incremented before the frontier is consulted
// and decremented after the URL (if any) is fully processed, so a
// worker that finds the frontier empty can tell whether a peer is
// still mid-page and might yet enqueue more links.
func (s *Supervisor) runWorker(ctx context.Context, w *Worker) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.active.Add(1)
		rawURL, ok := w.frontier.Next()
		if !ok {
			if s.active.Add(-1) == 0 {
				s.logger.Debug("frontier drained", "worker", w.id)
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pollInterval):
			}
			continue
		}

		w.process(ctx, rawURL)
		s.active.Add(-1)
	}
}
