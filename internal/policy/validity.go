package policy

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultAllowedDomains matches the hosts the crawl is scoped to.
// The pattern is applied to the lowercased host of every candidate URL.
const DefaultAllowedDomains = `.*\.(ics|cs|informatics|stat)\.uci\.edu$`

// skipExtensions matches URL paths pointing at binary or non-indexable
// assets. Matching is against the lowercased path.
var skipExtensions = regexp.MustCompile(
	`.*\.(css|js|bmp|gif|jpe?g|ico` +
		`|png|tiff?|mid|mp2|mp3|mp4` +
		`|wav|avi|mov|mpeg|ram|m4v|mkv|ogg|ogv|pdf` +
		`|ps|eps|tex|ppt|pptx|doc|docx|xls|xlsx|names` +
		`|data|dat|exe|bz2|tar|msi|bin|7z|psd|dmg|iso` +
		`|epub|dll|cnf|tgz|sha1` +
		`|thmx|mso|arff|rtf|jar|csv` +
		`|rm|smil|wmv|swf|wma|zip|rar|gz)$`)

// Validator decides whether a URL belongs in the crawl at all: correct
// scheme, in-scope host, not a known trap shape, and not a binary asset.
// Robots evaluation is separate (see Agent); validity is a pure function
// of the URL string and needs no network.
type Validator struct {
	// allowedDomains scopes the crawl; only matching hosts pass.
	allowedDomains *regexp.Regexp
}

// NewValidator compiles a Validator for the given host pattern.
// An empty pattern falls back to DefaultAllowedDomains.
func NewValidator(allowedDomainPattern string) (*Validator, error) {
	if allowedDomainPattern == "" {
		allowedDomainPattern = DefaultAllowedDomains
	}
	re, err := regexp.Compile(allowedDomainPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid allowed-domain pattern: %w", err)
	}
	return &Validator{allowedDomains: re}, nil
}

// IsValid reports whether a URL should be crawled.
func (v *Validator) IsValid(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !v.allowedDomains.MatchString(strings.ToLower(u.Host)) {
		return false
	}
	if IsTrap(rawURL) {
		return false
	}
	return !skipExtensions.MatchString(strings.ToLower(u.Path))
}
