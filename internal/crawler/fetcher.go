package crawler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/webharvest/webharvest/internal/model"
)

// DefaultUserAgent identifies the crawler to servers. Operators should
// override it with a contact address for any real deployment.
const DefaultUserAgent = "webharvest/1.0"

// DefaultFetchTimeout bounds a single page download.
const DefaultFetchTimeout = 30 * time.Second

// Fetcher downloads one URL and reports the outcome as a Page.
//
// Design decision: Fetch returns a Page even on failure, with the error
// recorded in FetchErr, because:
//  1. The worker loop treats every outcome uniformly; a failed fetch
//     still flows through to completion
//  2. A fixed-shape result keeps the loop free of error branching
//  3. Stub fetchers in tests stay trivial to write
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) *model.Page
}

// HTTPFetcher fetches pages over plain HTTP(S).
type HTTPFetcher struct {
	// client performs the requests.
	client *http.Client

	// userAgent is the User-Agent header sent with each request.
	userAgent string

	// maxBodySize limits how many response bytes are read.
	maxBodySize int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size in bytes.
// Non-positive values keep the default limit.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewHTTPFetcher creates a fetcher. A nil client gets a default with
// DefaultFetchTimeout.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}

	f := &HTTPFetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: model.MaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads pageURL. The returned Page always has URL set; on
// transport failure only FetchErr is populated.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) *model.Page {
	page := &model.Page{URL: pageURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		page.FetchErr = err.Error()
		return page
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		page.FetchErr = err.Error()
		return page
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		page.FetchErr = err.Error()
		return page
	}

	page.StatusCode = resp.StatusCode
	page.Headers = resp.Header
	page.Body = body
	page.TruncateBody()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			page.ContentType = mediaType
		} else {
			page.ContentType = ct
		}
	}

	return page
}
