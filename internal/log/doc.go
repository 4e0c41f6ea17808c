// Package log provides the crawler's slog setup: a text handler with a
// wrapper that truncates oversized attribute values such as page text
// and link lists.
package log
