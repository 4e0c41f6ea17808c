package politeness

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/webharvest/webharvest/internal/urlutil"
)

// Coordinator serializes fetches per domain so that any two requests to
// the same domain, from any pair of workers, are separated by at least
// the configured delay. Domains are fully independent: a wait on one
// never blocks progress on another.
//
// Design decision: Each domain gets its own slot with its own mutex,
// held across the whole wait-then-stamp sequence. Holding the slot lock
// through the sleep is what serializes same-domain callers; the map lock
// is only taken long enough to find or create the slot, so unrelated
// domains share no contention point.
type Coordinator struct {
	// delay is the minimum gap between fetches to one domain.
	delay time.Duration

	// mu guards the domains map only, never held during a wait.
	mu sync.Mutex

	// domains maps scheme-authority to its slot. Grows unboundedly with
	// the crawl's domain set; entries are small and never evicted within
	// a crawl.
	domains map[string]*domainSlot

	// rateLimit optionally caps requests per domain with a token bucket,
	// layered after the fixed delay.
	rateLimit *rateSettings
}

// domainSlot carries one domain's politeness state.
type domainSlot struct {
	// mu is held for the full wait+stamp sequence of one fetch.
	mu sync.Mutex

	// last is the stamped time of the previous fetch, recorded after
	// its wait completed. Zero until the domain's first fetch.
	last time.Time

	// limiter enforces the optional per-domain request rate.
	limiter *rate.Limiter
}

// rateSettings configures token-bucket limiting per domain.
type rateSettings struct {
	requests int
	window   time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDomainRate adds a per-domain token-bucket cap of requests per window
// on top of the fixed delay. Useful for domains whose robots.txt advertises
// a crawl budget tighter than a single delay expresses.
func WithDomainRate(requests int, window time.Duration) Option {
	return func(c *Coordinator) {
		if requests > 0 && window > 0 {
			c.rateLimit = &rateSettings{requests: requests, window: window}
		}
	}
}

// NewCoordinator creates a Coordinator with the given politeness delay.
// A zero or negative delay disables waiting but still stamps fetch times.
func NewCoordinator(delay time.Duration, opts ...Option) *Coordinator {
	c := &Coordinator{
		delay:   delay,
		domains: make(map[string]*domainSlot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AwaitTurn blocks until at least the configured delay has elapsed since
// the last fetch initiated against the URL's domain, then stamps the
// current time as that domain's last-fetch time and returns.
//
// The stamp happens after the wait completes, not at call entry;
// otherwise two concurrent callers could both satisfy their wait against
// the same stale timestamp and fire back-to-back. The wait is bounded by
// the configured delay and always completes; no cancellation is exposed.
func (c *Coordinator) AwaitTurn(rawURL string) {
	domain := urlutil.Domain(rawURL)
	if domain == "" {
		return
	}

	slot := c.slot(domain)

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if c.delay > 0 && !slot.last.IsZero() {
		if wait := c.delay - time.Since(slot.last); wait > 0 {
			time.Sleep(wait)
		}
	}

	if slot.limiter != nil {
		// Reserve rather than Wait: the coordinator exposes no
		// cancellation, and Reserve gives us the sleep directly.
		r := slot.limiter.Reserve()
		if d := r.Delay(); d > 0 {
			time.Sleep(d)
		}
	}

	slot.last = time.Now()
}

// slot finds or creates the slot for a domain.
func (c *Coordinator) slot(domain string) *domainSlot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.domains[domain]
	if !ok {
		s = &domainSlot{}
		if c.rateLimit != nil {
			interval := c.rateLimit.window / time.Duration(c.rateLimit.requests)
			if interval <= 0 {
				interval = time.Millisecond
			}
			s.limiter = rate.NewLimiter(rate.Every(interval), c.rateLimit.requests)
		}
		c.domains[domain] = s
	}
	return s
}

// Domains returns the number of distinct domains seen so far.
// Used for end-of-crawl logging.
func (c *Coordinator) Domains() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.domains)
}
