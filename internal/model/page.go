package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaxBodySize is the maximum size of raw page content to keep in memory.
// Larger responses are truncated to this size before extraction.
const MaxBodySize = 5 * 1024 * 1024 // 5 MB

// Page represents one fetched URL as it moves through the worker loop.
// It carries the raw transport outcome and, once extraction has run,
// the decoded document text.
//
// Design decision: We model the fetch outcome as a fixed-shape struct
// with explicit optional fields (status, bytes, headers, error) rather
// than distinct success/failure types because the worker loop treats
// every outcome uniformly: a failed fetch simply carries no body and
// falls through toward completion.
type Page struct {
	// URL is the canonical URL that was fetched.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	// Zero when the request never produced a response.
	StatusCode int `json:"status_code"`

	// Headers contains all HTTP response headers.
	// Keys are header names (canonicalized), values are slices of header values.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the MIME type of the response, without parameters.
	// Extracted from the Content-Type header for convenience.
	ContentType string `json:"content_type,omitempty"`

	// Body contains the raw response body bytes, capped at MaxBodySize.
	Body []byte `json:"-"` // Excluded from JSON to keep records small

	// Text is the decoded document text produced by extraction.
	// Empty when the response carried no usable text (non-200 status,
	// non-text content type, undecodable or near-empty body).
	Text string `json:"text,omitempty"`

	// Hash is the SHA-256 hash of the extracted text.
	// Used for exact duplicate detection and change tracking.
	Hash string `json:"hash,omitempty"`

	// FetchErr describes a transport-level failure, if any.
	// Recorded for logging only; it never aborts the worker loop.
	FetchErr string `json:"fetch_err,omitempty"`
}

// ComputeHash calculates and sets the SHA-256 hash of the extracted text.
// This should be called after setting the Text field.
func (p *Page) ComputeHash() {
	if p.Text == "" {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256([]byte(p.Text))
	p.Hash = hex.EncodeToString(hash[:])
}

// GetHeader returns the first value of the specified header.
// Returns empty string if the header is not present.
// Go's http package canonicalizes header names, so lookups use
// the canonical form.
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// OK reports whether the fetch produced a usable 200 response with a body.
func (p *Page) OK() bool {
	return p.StatusCode == 200 && len(p.Body) > 0
}

// IsTextual reports whether the content type is one the extractor accepts.
// An empty content type is treated as textual; servers that omit the
// header still frequently serve HTML.
func (p *Page) IsTextual() bool {
	if p.ContentType == "" {
		return true
	}
	if strings.HasPrefix(p.ContentType, "text/") {
		return true
	}
	switch p.ContentType {
	case "application/xhtml+xml", "application/xml":
		return true
	}
	return false
}

// TruncateBody ensures the raw content doesn't exceed MaxBodySize.
// Call this after setting Body to enforce the size limit.
func (p *Page) TruncateBody() {
	if len(p.Body) > MaxBodySize {
		p.Body = p.Body[:MaxBodySize]
	}
}
