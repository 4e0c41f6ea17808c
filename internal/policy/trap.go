package policy

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Limits on URL shape. Beyond these, a URL is assumed to be generated by
// the site rather than authored, and crawling it only digs deeper into
// the generator.
const (
	maxURLLength    = 2000
	maxPathSegments = 10
)

// maxYearDrift is how far a date embedded in a URL may sit from the
// current year before the URL counts as a calendar trap.
const maxYearDrift = 3

// datePatterns match date-addressed URLs, the signature of calendar traps.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/(19|20)\d{2}/\d{1,2}/\d{1,2}/`),
	regexp.MustCompile(`/(19|20)\d{2}-\d{1,2}-\d{1,2}/`),
	regexp.MustCompile(`[?&](date|day|month|year)=\d{4}[-/]\d{1,2}[-/]\d{1,2}`),
}

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// calendarPathPatterns match event/calendar archive paths that enumerate
// endlessly (daily pages, month views, tag lists).
var calendarPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/events/\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`/events/.*/day/\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`/calendar/`),
	regexp.MustCompile(`/events/today/?$`),
	regexp.MustCompile(`/events/month(/|$)`),
	regexp.MustCompile(`/events/list(/|$)`),
	regexp.MustCompile(`/events/tag/[^/]+/\d{4}-\d{2}$`),
	regexp.MustCompile(`/events/tag/[^/]+/list(/|$)`),
}

// trackingKeys are query parameters that vary per visitor, not per page.
// Following them multiplies one page into unbounded URL aliases.
var trackingKeys = map[string]bool{
	"sessionid": true, "sid": true, "phpsessid": true, "jsessionid": true, "ref": true,
	"utm_source": true, "utm_medium": true, "utm_campaign": true, "utm_term": true, "utm_content": true,
	"gclid": true, "fbclid": true,
}

// feedKeys are query parameters requesting machine-readable or calendar
// renderings of a page.
var feedKeys = regexp.MustCompile(`(calendar|ical|feed|rss|atom)`)

var tribeKeys = map[string]bool{
	"tribe-bar-date": true, "eventdisplay": true, "tribe_event": true, "eventdate": true,
}

var dateValue = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// IsTrap reports whether a URL has the shape of a crawler trap: calendar
// archives, session-stamped aliases, pagination loops, or generated URL
// space. Heuristic by nature; it errs toward rejecting, since a bounded
// crawl loses little by skipping one legitimate page and loses hours by
// entering a calendar.
func IsTrap(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	pathLower := strings.ToLower(u.Path)

	if len(rawURL) > maxURLLength {
		return true
	}
	segments := 0
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments++
		}
	}
	if segments > maxPathSegments {
		return true
	}

	// Date-addressed URLs far from the present.
	currentYear := time.Now().UTC().Year()
	for _, pattern := range datePatterns {
		for _, match := range pattern.FindAllString(rawURL, -1) {
			yearStr := yearPattern.FindString(match)
			if yearStr == "" {
				continue
			}
			year, err := strconv.Atoi(yearStr)
			if err != nil {
				continue
			}
			if abs(year-currentYear) > maxYearDrift {
				return true
			}
		}
	}

	query := u.Query()
	for key, values := range query {
		if len(values) > 1 {
			return true
		}
		keyLower := strings.ToLower(key)
		switch keyLower {
		case "ical", "outlook-ical", "icalendar", "format":
			return true
		}
		if trackingKeys[keyLower] {
			return true
		}
		if feedKeys.MatchString(keyLower) {
			return true
		}
		if tribeKeys[keyLower] {
			return true
		}
		if strings.Contains(keyLower, "date") || strings.Contains(keyLower, "event") || strings.Contains(keyLower, "tribe") {
			for _, value := range values {
				if dateValue.MatchString(value) {
					return true
				}
			}
		}
	}

	for _, pattern := range calendarPathPatterns {
		if pattern.MatchString(pathLower) {
			return true
		}
	}

	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
