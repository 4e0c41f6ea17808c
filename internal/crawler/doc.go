// Package crawler contains the page pipeline: fetching URLs, extracting
// text and links, and the worker pool that drives URLs from the frontier
// through download, duplicate classification, storage, and link
// expansion until the frontier drains.
package crawler
