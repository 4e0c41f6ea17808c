package analytics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/webharvest/webharvest/internal/model"
	"github.com/webharvest/webharvest/internal/urlutil"
)

// DefaultSaveEvery is how many recorded pages pass between automatic
// state snapshots.
const DefaultSaveEvery = 50

// StateFileName is the name of the JSON snapshot inside the data
// directory.
const StateFileName = "analytics.json"

// wordPattern tokenizes page text for frequency counting.
var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// State is the collector's aggregate view of a crawl. It is the shape
// persisted to disk and consumed by the report command.
type State struct {
	// SuccessfulFetches counts fetches that yielded a stored page.
	// Failed downloads and pages skipped as duplicates or empty are
	// not counted.
	SuccessfulFetches int64 `json:"successful_fetches"`

	// UniquePages counts pages recorded with novel content.
	UniquePages int `json:"unique_pages"`

	// LongestPageURL is the recorded page with the most words.
	LongestPageURL string `json:"longest_page_url,omitempty"`

	// LongestPageWords is the word count of that page.
	LongestPageWords int `json:"longest_page_words"`

	// WordCounts maps every token seen to its total frequency across
	// recorded pages. Stopwords are filtered at ranking time, not here,
	// so the raw counts stay complete.
	WordCounts map[string]int `json:"word_counts"`

	// Subdomains maps host name to the number of unique pages found
	// under it.
	Subdomains map[string]int `json:"subdomains"`

	// UpdatedAt is when this snapshot was taken, UTC.
	UpdatedAt time.Time `json:"updated_at"`
}

// WordCount is one entry in the frequency ranking.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// TopWords returns the n most frequent non-stopword tokens, ties broken
// alphabetically. Single-letter tokens are excluded; they are almost
// always tokenizer shrapnel from contractions and markup.
func (s *State) TopWords(n int) []WordCount {
	ranked := make([]WordCount, 0, len(s.WordCounts))
	for word, count := range s.WordCounts {
		if len(word) < 2 || IsStopword(word) {
			continue
		}
		ranked = append(ranked, WordCount{Word: word, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// SortedSubdomains returns subdomain counts in alphabetical host order.
func (s *State) SortedSubdomains() []SubdomainCount {
	hosts := make([]string, 0, len(s.Subdomains))
	for host := range s.Subdomains {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	counts := make([]SubdomainCount, 0, len(hosts))
	for _, host := range hosts {
		counts = append(counts, SubdomainCount{Host: host, Pages: s.Subdomains[host]})
	}
	return counts
}

// SubdomainCount is one entry in the per-host page tally.
type SubdomainCount struct {
	Host  string `json:"host"`
	Pages int    `json:"pages"`
}

// Collector accumulates crawl statistics. Safe for concurrent use by
// many workers.
type Collector struct {
	// statePath is where snapshots are written. Empty disables
	// persistence.
	statePath string

	// saveEvery is the number of recorded pages between snapshots.
	saveEvery int

	logger *slog.Logger

	mu            sync.Mutex
	state         State
	sinceLastSave int
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithSaveEvery overrides the snapshot interval.
func WithSaveEvery(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.saveEvery = n
		}
	}
}

// WithInitialState seeds the collector with a previously saved state,
// so a resumed crawl keeps accumulating instead of starting from zero.
func WithInitialState(s *State) CollectorOption {
	return func(c *Collector) {
		if s == nil {
			return
		}
		c.state = *s
		if c.state.WordCounts == nil {
			c.state.WordCounts = make(map[string]int)
		}
		if c.state.Subdomains == nil {
			c.state.Subdomains = make(map[string]int)
		}
	}
}

// NewCollector creates a collector that snapshots to statePath. An
// empty path keeps all state in memory.
func NewCollector(statePath string, logger *slog.Logger, opts ...CollectorOption) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Collector{
		statePath: statePath,
		saveEvery: DefaultSaveEvery,
		logger:    logger,
		state: State{
			WordCounts: make(map[string]int),
			Subdomains: make(map[string]int),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NotifyFetch counts one fetch that yielded a stored page.
func (c *Collector) NotifyFetch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SuccessfulFetches++
}

// Record observes one stored page: its word frequencies, its length,
// and its subdomain. Triggers a snapshot every saveEvery pages.
func (c *Collector) Record(page *model.Page) {
	words := wordPattern.FindAllString(strings.ToLower(page.Text), -1)
	host := urlutil.Host(page.URL)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.UniquePages++
	if host != "" {
		c.state.Subdomains[host]++
	}
	for _, word := range words {
		c.state.WordCounts[word]++
	}
	if len(words) > c.state.LongestPageWords {
		c.state.LongestPageWords = len(words)
		c.state.LongestPageURL = page.URL
	}

	c.sinceLastSave++
	if c.statePath != "" && c.sinceLastSave >= c.saveEvery {
		c.sinceLastSave = 0
		if err := c.saveLocked(); err != nil {
			c.logger.Warn("failed to snapshot analytics state", "error", err)
		}
	}
}

// Snapshot returns a deep copy of the current state.
func (c *Collector) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyStateLocked()
}

// Save writes the current state to the state file.
func (c *Collector) Save() error {
	if c.statePath == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// saveLocked snapshots state to disk via a temp file and rename, so a
// crash mid-write never leaves a truncated state file. Caller holds mu.
func (c *Collector) saveLocked() error {
	state := c.copyStateLocked()
	state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analytics state: %w", err)
	}

	dir := filepath.Dir(c.statePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "analytics-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.statePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (c *Collector) copyStateLocked() State {
	state := c.state
	state.WordCounts = make(map[string]int, len(c.state.WordCounts))
	for k, v := range c.state.WordCounts {
		state.WordCounts[k] = v
	}
	state.Subdomains = make(map[string]int, len(c.state.Subdomains))
	for k, v := range c.state.Subdomains {
		state.Subdomains[k] = v
	}
	return state
}

// LoadState reads a snapshot written by a collector.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analytics state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode analytics state: %w", err)
	}
	if state.WordCounts == nil {
		state.WordCounts = make(map[string]int)
	}
	if state.Subdomains == nil {
		state.Subdomains = make(map[string]int)
	}
	return &state, nil
}
