package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sink stores human-readable log lines, e.g. the status log ring.
type Sink interface {
	AppendLog(line string)
}

// RingHandler forwards records to next and mirrors Info+ records into a Sink
// as "[15:04:05] message key=value".
type RingHandler struct {
	next  slog.Handler
	sink  Sink
	attrs []slog.Attr
}

func NewRingHandler(next slog.Handler, sink Sink) *RingHandler {
	return &RingHandler{next: next, sink: sink}
}

func (h *RingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo || h.next.Enabled(ctx, level)
}

func (h *RingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		h.sink.AppendLog(h.format(r))
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &RingHandler{next: h.next.WithAttrs(attrs), sink: h.sink, attrs: merged}
}

func (h *RingHandler) WithGroup(name string) slog.Handler {
	return &RingHandler{next: h.next.WithGroup(name), sink: h.sink, attrs: h.attrs}
}

func (h *RingHandler) format(r slog.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", r.Time.Format("15:04:05"))
	if r.Level >= slog.LevelWarn {
		b.WriteString(r.Level.String())
		b.WriteByte(' ')
	}
	b.WriteString(r.Message)

	write := func(a slog.Attr) bool {
		// component tags are noise in the status view
		if a.Key == "component" {
			return true
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Resolve())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	return b.String()
}
