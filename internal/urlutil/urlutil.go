// Package urlutil provides URL normalization and identity hashing.
//
// Every component that needs a stable URL identity (the frontier, the
// politeness coordinator, the analytics collector) goes through this
// package so that the same page is never tracked under two spellings.
package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Normalize returns the canonical form of a URL.
//
// Design decision: We normalize URLs because:
//  1. Same page can have different URL representations
//  2. Fragment (#anchor) doesn't change content
//  3. Scheme and host are case-insensitive per RFC 3986
//
// The empty path and "/" are treated as equivalent so that
// http://example.edu and http://example.edu/ share one identity.
// Unparseable input is returned unchanged; the validity filter
// rejects it later.
func Normalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// Hash returns the hex-encoded SHA-256 digest of the normalized URL.
// This digest is the durable key for frontier records.
func Hash(rawURL string) string {
	sum := sha256.Sum256([]byte(Normalize(rawURL)))
	return hex.EncodeToString(sum[:])
}

// Domain returns the scheme-authority pair of a URL, lowercased.
// This is the unit the politeness coordinator serializes on.
// An unparseable URL or one without a host yields the empty string.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// Host returns the lowercased hostname (without port) of a URL.
// Used for robots.txt caching and subdomain analytics.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
