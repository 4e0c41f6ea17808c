package policy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// DefaultRobotsTTL is how long fetched robots.txt rules stay cached
// before being refetched.
const DefaultRobotsTTL = 30 * time.Minute

// RobotsAgent fetches and caches robots.txt rules per host and answers
// whether a URL may be crawled.
//
// Design decision: robots failures are treated as permission, not denial,
// because:
//  1. Most hosts in a bounded academic crawl have no robots.txt at all,
//     and a 404 should not silence the whole host.
//  2. A transient network error during the robots fetch should not
//     permanently exclude pages the site never asked us to skip.
type RobotsAgent struct {
	// client performs the robots.txt fetches.
	client *http.Client
	// userAgent is both the request User-Agent and the group name
	// matched against the robots rules.
	userAgent string
	// ttl bounds how long a cached ruleset is trusted.
	ttl time.Duration
	// respect disables all checking when false; every URL is allowed.
	respect bool
	// logger records fetch and parse failures.
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]robotsEntry
}

type robotsEntry struct {
	fetched time.Time
	rules   *robotstxt.RobotsData
}

// NewRobotsAgent creates a robots agent. A nil client gets a default
// with a 10 second timeout; a non-positive ttl falls back to
// DefaultRobotsTTL.
func NewRobotsAgent(userAgent string, respect bool, ttl time.Duration, client *http.Client, logger *slog.Logger) *RobotsAgent {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = DefaultRobotsTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsAgent{
		client:    client,
		userAgent: userAgent,
		ttl:       ttl,
		respect:   respect,
		logger:    logger,
		cache:     make(map[string]robotsEntry),
	}
}

// Allowed reports whether the target URL may be fetched under the
// host's robots.txt rules. Unparseable or relative URLs are denied;
// robots fetch or parse failures allow the URL.
func (a *RobotsAgent) Allowed(ctx context.Context, rawURL string) bool {
	if !a.respect {
		return true
	}

	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() {
		return false
	}

	rules := a.rules(ctx, target)
	if rules == nil {
		return true
	}

	group := rules.FindGroup(a.userAgent)
	if group == nil {
		group = rules.FindGroup("*")
		if group == nil {
			return true
		}
	}
	return group.Test(target.Path)
}

// rules returns the cached ruleset for the target's host, fetching
// robots.txt when the cache entry is missing or expired. Nil rules mean
// allow everything; the fail-open verdict is cached for the TTL so a
// host with an unreachable robots.txt is not refetched per URL.
func (a *RobotsAgent) rules(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := strings.ToLower(target.Host)

	a.mu.RLock()
	entry, ok := a.cache[host]
	a.mu.RUnlock()
	if ok && time.Since(entry.fetched) < a.ttl {
		return entry.rules
	}

	data, err := a.fetch(ctx, target)
	if err != nil {
		a.logger.Debug("robots.txt unavailable, allowing", "host", host, "error", err)
		data = nil
	}

	a.mu.Lock()
	a.cache[host] = robotsEntry{fetched: time.Now(), rules: data}
	a.mu.Unlock()

	return data
}

func (a *RobotsAgent) fetch(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	return robotstxt.FromResponse(resp)
}
