package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoSeeds is returned when no seed URL is provided.
	// Seeds come from positional arguments or the crawl file.
	ErrNoSeeds = errors.New("no seed URLs: provide seed arguments or a crawl file with seeds")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	// Use 0 to disable the delay between same-domain requests.
	ErrInvalidDelay = errors.New("invalid politeness delay: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	// A pool of zero workers would never drain the frontier.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidHashBits is returned when the simhash width is zero or
	// exceeds the 64 bits of the fingerprint word.
	ErrInvalidHashBits = errors.New("invalid simhash bits: must be between 1 and 64")

	// ErrInvalidThreshold is returned when a similarity threshold falls
	// outside (0, 1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold: must be in (0, 1]")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to apply the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	// A zero timeout would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid fetch timeout: must be positive")

	// ErrInvalidDomainRate is returned when the per-domain rate cap is
	// malformed: negative requests, or a cap with no window.
	ErrInvalidDomainRate = errors.New("invalid domain rate: requests must be non-negative and window positive when set")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
