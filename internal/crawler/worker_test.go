package crawler

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/webharvest/webharvest/internal/database"
	"github.com/webharvest/webharvest/internal/fingerprint"
	"github.com/webharvest/webharvest/internal/frontier"
	"github.com/webharvest/webharvest/internal/model"
	"github.com/webharvest/webharvest/internal/policy"
	"github.com/webharvest/webharvest/internal/politeness"
	"github.com/webharvest/webharvest/internal/urlutil"
)

// stubFetcher serves canned HTML pages by URL. Unknown URLs fail the
// way an unreachable host would.
type stubFetcher struct {
	pages map[string]string

	mu      sync.Mutex
	fetched []string
}

func (f *stubFetcher) Fetch(_ context.Context, pageURL string) *model.Page {
	f.mu.Lock()
	f.fetched = append(f.fetched, pageURL)
	f.mu.Unlock()

	body, ok := f.pages[pageURL]
	if !ok {
		return &model.Page{URL: pageURL, FetchErr: "connection refused"}
	}
	return &model.Page{
		URL:         pageURL,
		StatusCode:  200,
		ContentType: "text/html",
		Headers:     map[string][]string{"Content-Type": {"text/html"}},
		Body:        []byte(body),
	}
}

func (f *stubFetcher) fetchedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// blockingFetcher parks every fetch until the context is cancelled.
type blockingFetcher struct{}

func (f *blockingFetcher) Fetch(ctx context.Context, pageURL string) *model.Page {
	<-ctx.Done()
	return &model.Page{URL: pageURL, FetchErr: ctx.Err().Error()}
}

// recordingStore collects saved pages.
type recordingStore struct {
	mu    sync.Mutex
	pages []*model.Page
}

func (s *recordingStore) Save(page *model.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, page)
}

func (s *recordingStore) savedURLs() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make(map[string]bool, len(s.pages))
	for _, p := range s.pages {
		urls[p.URL] = true
	}
	return urls
}

// countingCollector counts collector callbacks.
type countingCollector struct {
	fetches  atomic.Int64
	recorded atomic.Int64
}

func (c *countingCollector) NotifyFetch()         { c.fetches.Add(1) }
func (c *countingCollector) Record(_ *model.Page) { c.recorded.Add(1) }

// newTestBench wires a supervisor over a temp-database frontier and the
// given fetcher, and returns the pieces the assertions need.
func newTestBench(t *testing.T, fetcher Fetcher, opts ...SupervisorOption) (*Supervisor, *frontier.Frontier, *database.FrontierDB, *recordingStore, *countingCollector) {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.Default()
	front := frontier.New(db, logger)

	validator, err := policy.NewValidator(`^a\.edu$`)
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	store := &recordingStore{}
	collector := &countingCollector{}

	deps := Deps{
		Frontier:    front,
		Coordinator: politeness.NewCoordinator(0),
		Fetcher:     fetcher,
		Extractor:   NewExtractor(),
		Tracker:     fingerprint.NewTracker(fingerprint.DefaultExactThreshold, fingerprint.DefaultNearThreshold, fingerprint.DefaultHashBits),
		Validator:   validator,
		Store:       store,
		Collector:   collector,
		Logger:      logger,
	}
	opts = append([]SupervisorOption{WithPollInterval(5 * time.Millisecond)}, opts...)
	return NewSupervisor(deps, opts...), front, db, store, collector
}

// requireCompleted asserts the frontier record for a URL is marked done.
func requireCompleted(t *testing.T, db *database.FrontierDB, rawURL string) {
	t.Helper()
	rec, err := db.Get(context.Background(), urlutil.Hash(rawURL))
	if err != nil {
		t.Fatalf("failed to read record for %s: %v", rawURL, err)
	}
	if rec == nil {
		t.Fatalf("no frontier record for %s", rawURL)
	}
	if !rec.Completed {
		t.Errorf("record for %s not completed", rawURL)
	}
}

func TestCrawlScenario(t *testing.T) {
	t.Parallel()

	seedText := "The systems group studies distributed consensus and storage, " +
		"with projects spanning replication, scheduling, and fault injection."
	childText := "Current openings: two funded doctoral positions on consensus " +
		"protocols under partial synchrony, starting in the fall quarter."
	knownText := "This week's seminar covers erasure coding tradeoffs in " +
		"archival storage systems, with a practice talk beforehand."

	fetcher := &stubFetcher{pages: map[string]string{
		"http://a.edu/": `<body><p>` + seedText + `</p>
			<a href="/x">openings</a>
			<a href="/x#apply">openings again</a>
			<a href="http://a.edu/x">absolute duplicate</a>
			<a href="http://b.edu/outside">partner site</a>
			<a href="/dup">seminar</a>
		</body>`,
		"http://a.edu/x": `<body><p>` + childText + `</p><a href="/">home</a></body>`,
		"http://a.edu/dup": `<body><p>` + knownText + `</p>
			<a href="/never-reached"></a>
		</body>`,
	}}

	sup, front, db, store, collector := newTestBench(t, fetcher, WithWorkerCount(1))

	// The seminar text was seen earlier in the crawl's life.
	sup.deps.Tracker.Classify("http://a.edu/earlier", knownText)

	ctx := context.Background()
	if err := front.Load(ctx, []string{"http://a.edu/"}, true, sup.deps.Validator.IsValid); err != nil {
		t.Fatalf("failed to load frontier: %v", err)
	}

	if err := sup.Run(ctx); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	saved := store.savedURLs()
	if !saved["http://a.edu/"] || !saved["http://a.edu/x"] {
		t.Errorf("saved pages = %v, want seed and child", saved)
	}
	if saved["http://a.edu/dup"] {
		t.Error("duplicate-content page was stored")
	}

	for _, u := range fetcher.fetchedURLs() {
		if strings.HasPrefix(u, "http://b.edu/") {
			t.Errorf("fetched out-of-scope URL %s", u)
		}
		if strings.Contains(u, "never-reached") {
			t.Errorf("expanded links from duplicate page: fetched %s", u)
		}
	}

	// Only stored pages count as successful fetches; the duplicate is
	// downloaded but skipped.
	if got := collector.fetches.Load(); got != 2 {
		t.Errorf("fetch count = %d, want 2", got)
	}
	if got := collector.recorded.Load(); got != 2 {
		t.Errorf("recorded count = %d, want 2", got)
	}

	for _, u := range []string{"http://a.edu/", "http://a.edu/x", "http://a.edu/dup"} {
		requireCompleted(t, db, u)
	}
	if got := front.Pending(); got != 0 {
		t.Errorf("pending after drain = %d, want 0", got)
	}
}

func TestWorkerAbsorbsFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{pages: map[string]string{}}
	sup, front, db, store, collector := newTestBench(t, fetcher, WithWorkerCount(1))

	ctx := context.Background()
	if err := front.Load(ctx, []string{"http://a.edu/down"}, true, nil); err != nil {
		t.Fatalf("failed to load frontier: %v", err)
	}

	if err := sup.Run(ctx); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if got := collector.fetches.Load(); got != 0 {
		t.Errorf("fetch count = %d, want 0", got)
	}
	if len(store.savedURLs()) != 0 {
		t.Error("failed fetch produced a stored page")
	}
	requireCompleted(t, db, "http://a.edu/down")
}

func TestWorkerSkipsPageWithoutContent(t *testing.T) {
	t.Parallel()

	// A stub page whose visible text is below the meaningful-content
	// threshold but which still carries an outgoing link.
	fetcher := &stubFetcher{pages: map[string]string{
		"http://a.edu/": `<body><p>hi</p><a href="/leaked">more</a></body>`,
	}}
	sup, front, db, store, collector := newTestBench(t, fetcher, WithWorkerCount(1))

	ctx := context.Background()
	if err := front.Load(ctx, []string{"http://a.edu/"}, true, nil); err != nil {
		t.Fatalf("failed to load frontier: %v", err)
	}

	if err := sup.Run(ctx); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	for _, u := range fetcher.fetchedURLs() {
		if strings.Contains(u, "leaked") {
			t.Errorf("expanded links from a no-content page: fetched %s", u)
		}
	}
	if len(store.savedURLs()) != 0 {
		t.Error("no-content page was stored")
	}
	if got := collector.fetches.Load(); got != 0 {
		t.Errorf("fetch count = %d, want 0", got)
	}
	requireCompleted(t, db, "http://a.edu/")
	if got := front.Pending(); got != 0 {
		t.Errorf("pending after drain = %d, want 0", got)
	}
}

func TestSupervisorDrainsAcrossWorkers(t *testing.T) {
	t.Parallel()

	// A chain of pages, each linking only to the next, so discoveries
	// keep trickling in while most workers sit idle at an empty
	// frontier.
	pages := map[string]string{
		"http://a.edu/p0": `<body><p>robotics laboratory overview with manipulators and motion planning benchmarks</p><a href="/p1">next</a></body>`,
		"http://a.edu/p1": `<body><p>graduate admissions deadlines and application fee waivers for the winter cycle</p><a href="/p2">next</a></body>`,
		"http://a.edu/p2": `<body><p>faculty directory listing offices phone numbers and research specialties</p><a href="/p3">next</a></body>`,
		"http://a.edu/p3": `<body><p>undergraduate course catalog including compilers databases and graphics electives</p><a href="/p4">next</a></body>`,
		"http://a.edu/p4": `<body><p>alumni newsletter archive from the department's first fifty years</p></body>`,
	}
	fetcher := &stubFetcher{pages: pages}
	sup, front, db, store, _ := newTestBench(t, fetcher, WithWorkerCount(4))

	ctx := context.Background()
	if err := front.Load(ctx, []string{"http://a.edu/p0"}, true, nil); err != nil {
		t.Fatalf("failed to load frontier: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("supervisor did not drain")
	}

	if got := len(store.savedURLs()); got != len(pages) {
		t.Errorf("stored %d pages, want %d", got, len(pages))
	}
	for u := range pages {
		requireCompleted(t, db, u)
	}
}

func TestRunCancellation(t *testing.T) {
	t.Parallel()

	sup, front, _, _, _ := newTestBench(t, &blockingFetcher{}, WithWorkerCount(2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := front.Load(ctx, []string{"http://a.edu/start"}, true, nil); err != nil {
		t.Fatalf("failed to load frontier: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop after cancellation")
	}
}
