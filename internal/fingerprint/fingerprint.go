package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Reason classifies the outcome of a duplicate check.
type Reason string

const (
	// ReasonExact means the text is byte-identical to a previously
	// recorded page.
	ReasonExact Reason = "exact"

	// ReasonNear means the text's simhash is at least the near threshold
	// similar to a previously recorded page.
	ReasonNear Reason = "near"

	// ReasonNew means the text matched nothing and was recorded.
	ReasonNew Reason = "new"
)

// DefaultHashBits is the fingerprint width in bits.
const DefaultHashBits = 64

// DefaultNearThreshold is the bit-similarity fraction at or above which
// two pages count as near-duplicates. 0.88 tolerates boilerplate and
// navigation differences while separating substantively different pages.
const DefaultNearThreshold = 0.88

// DefaultExactThreshold is the exact-match threshold. Exact matching
// compares digests for equality, so any value but 1.0 is meaningless;
// the knob exists for configuration parity and reporting.
const DefaultExactThreshold = 1.0

// Tracker detects duplicate and near-duplicate page content. It keeps
// two mappings, URL to exact hash and URL to simhash, and classifies each
// new page against everything recorded before it.
//
// A Tracker may be shared by all workers or created per worker. Shared
// gives the stronger guarantee (duplicates are caught across workers) at
// the cost of a single lock all classifications pass through; per-worker
// trades cross-worker duplicates for zero contention. The choice is the
// caller's; see config.SharedTracker.
type Tracker struct {
	// mu guards both maps. Classification and recording must be one
	// critical section: two pages with the same content classified
	// concurrently must not both observe "new".
	mu sync.Mutex

	// exactHashes maps URL to the SHA-256 hex digest of its text.
	exactHashes map[string]string

	// simhashes maps URL to its fingerprint.
	simhashes map[string]uint64

	// hashBits is the fingerprint width, at most 64.
	hashBits uint

	// exactThreshold is reported in Stats; matching is digest equality.
	exactThreshold float64

	// nearThreshold is the minimum bit similarity for a near match.
	nearThreshold float64
}

// Stats summarizes a tracker's state for end-of-crawl logging.
type Stats struct {
	// UniquePages is the number of pages recorded as new.
	UniquePages int

	// HashBits is the fingerprint width.
	HashBits uint

	// ExactThreshold and NearThreshold echo the configured thresholds.
	ExactThreshold float64
	NearThreshold  float64
}

// NewTracker creates a Tracker. Out-of-range arguments fall back to the
// defaults: hashBits is clamped to (0, 64], thresholds to (0, 1].
func NewTracker(exactThreshold, nearThreshold float64, hashBits uint) *Tracker {
	if hashBits == 0 || hashBits > 64 {
		hashBits = DefaultHashBits
	}
	if nearThreshold <= 0 || nearThreshold > 1 {
		nearThreshold = DefaultNearThreshold
	}
	if exactThreshold <= 0 || exactThreshold > 1 {
		exactThreshold = DefaultExactThreshold
	}
	return &Tracker{
		exactHashes:    make(map[string]string),
		simhashes:      make(map[string]uint64),
		hashBits:       hashBits,
		exactThreshold: exactThreshold,
		nearThreshold:  nearThreshold,
	}
}

// Classify reports whether text duplicates a previously recorded page.
//
// Empty text is never a duplicate and is not recorded; there is nothing
// meaningful to fingerprint. Otherwise the text is compared against every
// prior entry, exact hash first, and recorded under url only when nothing
// matched. The compare-and-record sequence is a single critical section,
// so of two concurrent submissions with identical content exactly one is
// classified new.
//
// Comparison cost is linear in the number of recorded pages. That is a
// deliberate tradeoff: the crawl is domain-bounded, and a bucketed index
// would buy little for its complexity.
func (t *Tracker) Classify(url, text string) (bool, Reason) {
	if text == "" {
		return false, ReasonNew
	}

	sum := sha256.Sum256([]byte(text))
	exact := hex.EncodeToString(sum[:])
	fp := simhash(text, t.hashBits)

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, stored := range t.exactHashes {
		if exact == stored {
			return true, ReasonExact
		}
	}

	for _, stored := range t.simhashes {
		if hammingSimilarity(fp, stored, t.hashBits) >= t.nearThreshold {
			return true, ReasonNear
		}
	}

	t.exactHashes[url] = exact
	t.simhashes[url] = fp
	return false, ReasonNew
}

// Similarity returns the bit similarity between the fingerprints of two
// texts. Exposed for tests and reporting; Classify is the crawl-path API.
func (t *Tracker) Similarity(a, b string) float64 {
	return hammingSimilarity(simhash(a, t.hashBits), simhash(b, t.hashBits), t.hashBits)
}

// Stats returns a snapshot of the tracker's state.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		UniquePages:    len(t.simhashes),
		HashBits:       t.hashBits,
		ExactThreshold: t.exactThreshold,
		NearThreshold:  t.nearThreshold,
	}
}
