package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"

	"github.com/webharvest/webharvest/internal/model"
)

// MinTextLength is the minimum number of characters for extracted text
// to count as meaningful content. Shorter documents (empty pages, bare
// redirect stubs) are treated as having no text.
const MinTextLength = 20

// Extractor pulls the visible text and the outgoing links out of a
// fetched page.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
type Extractor struct {
	// minTextLength is the threshold below which extracted text is discarded.
	minTextLength int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMinTextLength overrides the meaningful-content threshold.
func WithMinTextLength(n int) ExtractorOption {
	return func(e *Extractor) {
		e.minTextLength = n
	}
}

// NewExtractor creates an extractor with default settings.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{minTextLength: MinTextLength}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// skipElements are HTML elements whose text is never visible to a
// reader; their subtrees contribute nothing to the page's content.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"meta":     true,
	"link":     true,
	"noscript": true,
}

// Extract parses the page body, sets Text and Hash on the page, and
// returns the outgoing links.
//
// Design decision: text and links come from a single parse pass because:
//  1. Parsing is the expensive step; one DOM walk serves both
//  2. The worker always needs both on the same page
//
// Non-200 responses and non-text content types yield no text and no
// links. Undecodable bodies likewise yield nothing; the page still
// flows on to completion.
func (e *Extractor) Extract(page *model.Page) []string {
	if !page.OK() || !page.IsTextual() {
		return nil
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		return nil
	}

	// Decode legacy charsets (the Content-Type parameter or a meta tag)
	// into UTF-8 before parsing.
	reader, err := charset.NewReader(bytes.NewReader(page.Body), page.GetHeader("Content-Type"))
	if err != nil {
		return nil
	}

	doc, err := html.Parse(reader)
	if err != nil {
		return nil
	}

	var textParts []string
	var links []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skipElements[n.Data] {
				return
			}
			if n.Data == "a" {
				if link := resolveLink(base, getAttr(n, "href")); link != "" && !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
			}
		case html.TextNode:
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				textParts = append(textParts, trimmed)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	// Normalize to NFC so composed and decomposed spellings of the same
	// text fingerprint identically.
	text := norm.NFC.String(strings.Join(strings.Fields(strings.Join(textParts, " ")), " "))
	if len(text) >= e.minTextLength {
		page.Text = text
	}
	page.ComputeHash()

	return links
}

// resolveLink turns an href into an absolute, fragment-free URL, or ""
// when the href is not a crawlable page reference.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(strings.ToLower(href), scheme) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	// Fragments address positions inside one document, not distinct pages.
	resolved.Fragment = ""
	return resolved.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
