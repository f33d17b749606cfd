package chronicle

import (
	"context"
	"log/slog"
)

// TagKey marks a log record for the chronicle.
const TagKey = "chronicle"

// Tag is the attribute that sends a record to the chronicle.
var Tag = slog.Bool(TagKey, true)

// Handler passes records through to next and copies the message of every
// tagged record at Info or above into the sink.
type Handler struct {
	next   slog.Handler
	sink   *Sink
	tagged bool
}

// NewHandler wraps next.
func NewHandler(next slog.Handler, sink *Sink) *Handler {
	return &Handler{next: next, sink: sink}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo || h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo && (h.tagged || isTagged(r)) {
		h.sink.Append(r.Message)
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	tagged := h.tagged
	for _, a := range attrs {
		if isTag(a) {
			tagged = true
		}
	}
	return &Handler{next: h.next.WithAttrs(attrs), sink: h.sink, tagged: tagged}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), sink: h.sink, tagged: h.tagged}
}

func isTagged(r slog.Record) bool {
	found := false
	r.Attrs(func(a slog.Attr) bool {
		if isTag(a) {
			found = true
			return false
		}
		return true
	})
	return found
}

func isTag(a slog.Attr) bool {
	return a.Key == TagKey && a.Value.Kind() == slog.KindBool && a.Value.Bool()
}
