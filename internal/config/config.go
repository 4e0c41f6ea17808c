package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/webharvest/webharvest/internal/policy"
)

// Default configuration values.
// These follow common courtesy norms for crawling university-scale sites.
const (
	// DefaultPolitenessDelay is the minimum gap between requests to the
	// same domain. 500ms is the politeness floor this crawler was built
	// around; operators can raise it for fragile hosts.
	DefaultPolitenessDelay = 500 * time.Millisecond

	// DefaultWorkers is the size of the worker pool. Four workers keep
	// several domains busy at once without turning the crawler into a
	// load test.
	DefaultWorkers = 4

	// DefaultFetchTimeout bounds a single page download.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultSimhashBits is the fingerprint width for near-duplicate
	// detection. 64 bits fit one machine word and give enough
	// resolution for page-sized documents.
	DefaultSimhashBits = 64

	// DefaultNearThreshold is the hamming similarity above which two
	// pages count as near duplicates.
	DefaultNearThreshold = 0.88

	// DefaultExactThreshold is the similarity meaning identical
	// fingerprints. Kept configurable so operators can loosen exact
	// matching, though 1.0 is almost always right.
	DefaultExactThreshold = 1.0

	// DefaultUserAgent identifies the crawler in HTTP requests.
	// A descriptive User-Agent allows operators to identify crawler
	// traffic in their logs.
	DefaultUserAgent = "webharvest/1.0 (+https://github.com/webharvest/webharvest)"

	// AppName is the application name used for XDG directory paths.
	AppName = "webharvest"
)

// Config holds all configuration options for a crawl.
// This struct is designed to be populated from CLI flags and an optional
// YAML file, then passed through the application via dependency injection
// rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Seeds are the starting URLs of the crawl.
	Seeds []string

	// PolitenessDelay is the minimum gap between two requests to the
	// same domain, measured start to start.
	PolitenessDelay time.Duration

	// Restart discards all frontier state and starts over from the
	// seeds. When false, an existing frontier is resumed.
	Restart bool

	// Workers is the number of concurrent crawl workers.
	Workers int

	// SimhashBits is the fingerprint width for near-duplicate
	// detection, at most 64.
	SimhashBits uint

	// NearThreshold is the similarity at or above which a page counts
	// as a near duplicate. In (0, 1].
	NearThreshold float64

	// ExactThreshold is the similarity meaning an exact duplicate.
	// In (0, 1].
	ExactThreshold float64

	// AllowedDomains is the regular expression a host must match for
	// its URLs to be crawled.
	AllowedDomains string

	// RespectRobots enables robots.txt checking before each download.
	RespectRobots bool

	// UserAgent is sent with every request and matched against
	// robots.txt groups.
	UserAgent string

	// SharedTracker makes all workers share one content tracker.
	// When false each worker deduplicates only against its own pages,
	// trading detection strength for zero tracker contention.
	SharedTracker bool

	// DataDir holds the frontier database and analytics state.
	// Defaults to the XDG data directory.
	DataDir string

	// OutputDir is where crawled page records are written.
	OutputDir string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// FetchTimeout bounds a single page download.
	FetchTimeout time.Duration

	// DomainRateRequests and DomainRateWindow cap requests per domain
	// to DomainRateRequests per DomainRateWindow, layered on top of the
	// politeness delay. Zero requests disables the cap.
	DomainRateRequests int
	DomainRateWindow   time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the YAML crawl file.
	// If empty, the tool searches for .webharvest.yml in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// JSONReport enables JSON report output instead of the
	// human-readable format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (delay, thresholds,
// worker count). This also serves as documentation of what the defaults
// are.
func NewConfig() *Config {
	return &Config{
		PolitenessDelay:  DefaultPolitenessDelay,
		Workers:          DefaultWorkers,
		SimhashBits:      DefaultSimhashBits,
		NearThreshold:    DefaultNearThreshold,
		ExactThreshold:   DefaultExactThreshold,
		AllowedDomains:   policy.DefaultAllowedDomains,
		RespectRobots:    true,
		UserAgent:        DefaultUserAgent,
		SharedTracker:    true,
		DataDir:          XDGDataDir(),
		OutputDir:        "crawl-output",
		MaxBodySize:      DefaultMaxBodySize,
		FetchTimeout:     DefaultFetchTimeout,
		DomainRateWindow: time.Minute,
	}
}

// XDGDataDir returns the XDG data directory for the crawler.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/webharvest
// On macOS: ~/Library/Application Support/webharvest
// On Windows: %LOCALAPPDATA%\webharvest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the crawler.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}

	if c.PolitenessDelay < 0 {
		return ErrInvalidDelay
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.SimhashBits == 0 || c.SimhashBits > 64 {
		return ErrInvalidHashBits
	}

	if c.NearThreshold <= 0 || c.NearThreshold > 1 {
		return ErrInvalidThreshold
	}
	if c.ExactThreshold <= 0 || c.ExactThreshold > 1 {
		return ErrInvalidThreshold
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.DomainRateRequests < 0 {
		return ErrInvalidDomainRate
	}
	if c.DomainRateRequests > 0 && c.DomainRateWindow <= 0 {
		return ErrInvalidDomainRate
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
