package storage

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/webharvest/webharvest/internal/model"
	"github.com/webharvest/webharvest/internal/urlutil"
)

// DefaultMaxPartSize is the uncompressed size at which a part file is
// rotated.
const DefaultMaxPartSize = 16 * 1024 * 1024 // 16 MB

// Record is one stored page as it appears on disk, one JSON object per
// line inside a gzip part file.
type Record struct {
	// URL is the canonical URL the page was fetched from.
	URL string `json:"url"`

	// FetchedAt is when the page was downloaded, UTC.
	FetchedAt time.Time `json:"fetched_at"`

	// Status is the HTTP status code of the fetch.
	Status int `json:"status"`

	// Source is the host the page came from; it doubles as the
	// partition key.
	Source string `json:"source"`

	// Data holds the extracted content.
	Data RecordData `json:"data"`
}

// RecordData is the content payload of a stored page.
type RecordData struct {
	// Text is the extracted visible text of the page.
	Text string `json:"text"`
}

// PageStore persists crawled pages as gzip-compressed JSONL, partitioned
// by source host and fetch date:
//
//	<base>/source=<host>/dt=<YYYY-MM-DD>/part-00000.jsonl.gz
//
// Design decision: Save never returns an error because:
//  1. The worker loop treats storage as fire-and-forget; a full disk
//     should surface in logs, not abort URL completion
//  2. The frontier, not the store, is the crawl's source of truth
//
// Only construction can fail; a store that cannot create its base
// directory is useless and the caller should stop.
type PageStore struct {
	// baseDir is the root of the partition tree.
	baseDir string

	// maxPartSize is the uncompressed byte count at which the current
	// part file is closed and a new one started.
	maxPartSize int64

	logger *slog.Logger

	mu    sync.Mutex
	parts map[string]*partWriter
}

// partWriter is the open part file for one (source, date) partition.
type partWriter struct {
	dir     string
	index   int
	file    *os.File
	gz      *gzip.Writer
	written int64
}

// StoreOption configures a PageStore.
type StoreOption func(*PageStore)

// WithMaxPartSize overrides the part rotation threshold.
func WithMaxPartSize(size int64) StoreOption {
	return func(s *PageStore) {
		if size > 0 {
			s.maxPartSize = size
		}
	}
}

// NewPageStore creates a store rooted at baseDir, creating the
// directory if needed.
func NewPageStore(baseDir string, logger *slog.Logger, opts ...StoreOption) (*PageStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &PageStore{
		baseDir:     baseDir,
		maxPartSize: DefaultMaxPartSize,
		logger:      logger,
		parts:       make(map[string]*partWriter),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Save appends one record for the page to its partition. Failures are
// logged and swallowed.
func (s *PageStore) Save(page *model.Page) {
	source := urlutil.Host(page.URL)
	if source == "" {
		source = "unknown"
	}

	rec := Record{
		URL:       page.URL,
		FetchedAt: time.Now().UTC(),
		Status:    page.StatusCode,
		Source:    source,
		Data:      RecordData{Text: page.Text},
	}

	line, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("failed to encode page record", "url", page.URL, "error", err)
		return
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	key := source + "/" + rec.FetchedAt.Format("2006-01-02")
	pw, err := s.part(key, source, rec.FetchedAt)
	if err != nil {
		s.logger.Warn("failed to open part file", "url", page.URL, "error", err)
		return
	}

	if _, err := pw.gz.Write(line); err != nil {
		s.logger.Warn("failed to write page record", "url", page.URL, "error", err)
		return
	}
	pw.written += int64(len(line))

	if pw.written >= s.maxPartSize {
		if err := s.rotate(key, pw); err != nil {
			s.logger.Warn("failed to rotate part file", "partition", key, "error", err)
		}
	}
}

// part returns the open writer for a partition, opening a fresh part
// file the first time the partition is touched in this process.
func (s *PageStore) part(key, source string, at time.Time) (*partWriter, error) {
	if pw, ok := s.parts[key]; ok {
		return pw, nil
	}

	dir := filepath.Join(s.baseDir,
		"source="+sanitizeHost(source),
		"dt="+at.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	index, err := nextPartIndex(dir)
	if err != nil {
		return nil, err
	}

	pw := &partWriter{dir: dir, index: index}
	if err := pw.open(); err != nil {
		return nil, err
	}
	s.parts[key] = pw
	return pw, nil
}

// rotate closes the current part file and opens the next one.
func (s *PageStore) rotate(key string, pw *partWriter) error {
	if err := pw.close(); err != nil {
		return err
	}
	pw.index++
	pw.written = 0
	return pw.open()
}

// Close flushes and closes every open part file.
func (s *PageStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for key, pw := range s.parts {
		if err := pw.close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close partition %s: %w", key, err)
		}
		delete(s.parts, key)
	}
	return firstErr
}

func (pw *partWriter) open() error {
	path := filepath.Join(pw.dir, fmt.Sprintf("part-%05d.jsonl.gz", pw.index))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	pw.file = f
	pw.gz = gzip.NewWriter(f)
	return nil
}

func (pw *partWriter) close() error {
	if pw.file == nil {
		return nil
	}
	gzErr := pw.gz.Close()
	fileErr := pw.file.Close()
	pw.file = nil
	pw.gz = nil
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}

// nextPartIndex finds the first unused part number in a partition
// directory, so a resumed crawl never clobbers earlier parts. Gzip
// files cannot be safely appended to, so each process starts a new
// part.
func nextPartIndex(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	next := 0
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "part-") || !strings.HasSuffix(name, ".jsonl.gz") {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(name, "part-%05d.jsonl.gz", &n); err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return next, nil
}

// sanitizeHost makes a host safe to use as a directory name.
func sanitizeHost(host string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, host)
}
