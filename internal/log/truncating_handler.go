package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"
)

// DefaultMaxValueLen is the length at which string attribute values are
// cut. Page text, URL lists, and raw bodies routinely run to megabytes;
// a log line that carries them is unreadable and can fill a disk.
const DefaultMaxValueLen = 512

// TruncationMarker is appended to values that were cut.
const TruncationMarker = "...(truncated)"

// TruncatingHandler wraps an slog.Handler and caps the length of string
// attribute values before passing records on.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Call sites stay free of ad hoc truncation helpers
type TruncatingHandler struct {
	// handler is the underlying slog handler that receives capped records.
	handler slog.Handler

	// maxValueLen is the maximum length of a string attribute value.
	maxValueLen int
}

// TruncatingOption configures a TruncatingHandler.
type TruncatingOption func(*TruncatingHandler)

// WithMaxValueLen overrides the value length cap.
func WithMaxValueLen(n int) TruncatingOption {
	return func(h *TruncatingHandler) {
		if n > 0 {
			h.maxValueLen = n
		}
	}
}

// NewTruncatingHandler creates a TruncatingHandler wrapping the given
// handler. If handler is nil, slog.Default().Handler() is used.
func NewTruncatingHandler(handler slog.Handler, opts ...TruncatingOption) *TruncatingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}

	h := &TruncatingHandler{
		handler:     handler,
		maxValueLen: DefaultMaxValueLen,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *TruncatingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle caps the record's attribute values and passes it on.
func (h *TruncatingHandler) Handle(ctx context.Context, r slog.Record) error {
	capped := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		capped.AddAttrs(h.truncateAttr(a))
		return true
	})

	return h.handler.Handle(ctx, capped)
}

// WithAttrs returns a new handler with the given attributes added,
// capped first.
func (h *TruncatingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cappedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		cappedAttrs[i] = h.truncateAttr(a)
	}
	return &TruncatingHandler{handler: h.handler.WithAttrs(cappedAttrs), maxValueLen: h.maxValueLen}
}

// WithGroup returns a new handler with the given group name.
func (h *TruncatingHandler) WithGroup(name string) slog.Handler {
	return &TruncatingHandler{handler: h.handler.WithGroup(name), maxValueLen: h.maxValueLen}
}

// truncateAttr caps a single attribute, recursively handling groups.
func (h *TruncatingHandler) truncateAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		cappedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			cappedAttrs[i] = h.truncateAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(cappedAttrs...)}

	case slog.KindString:
		return slog.String(a.Key, h.truncate(a.Value.String()))

	case slog.KindAny:
		// Stringify unknown values so oversized payloads behind
		// fmt.Stringer get capped too.
		s := fmt.Sprintf("%v", a.Value.Any())
		if len(s) > h.maxValueLen {
			return slog.String(a.Key, h.truncate(s))
		}
		return a

	default:
		return a
	}
}

// truncate cuts a string at the cap without splitting a UTF-8 sequence.
func (h *TruncatingHandler) truncate(s string) string {
	if len(s) <= h.maxValueLen {
		return s
	}

	cut := h.maxValueLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + TruncationMarker
}

// NewLogger creates a slog.Logger writing human-readable lines to w,
// with oversized attribute values capped.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	return slog.New(NewTruncatingHandler(textHandler))
}
