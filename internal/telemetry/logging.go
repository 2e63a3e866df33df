package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel accepts debug, info, warn or error in any case.
func ParseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q: %w", value, err)
	}
	return level, nil
}

// NewLogger returns a JSON logger on stdout that stamps records with the active trace and span ids.
func NewLogger(level slog.Level) *slog.Logger {
	return NewLoggerTo(os.Stdout, level)
}

func NewLoggerTo(w io.Writer, level slog.Level) *slog.Logger {
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(&traceHandler{base: base})
}

// traceHandler defers With* calls so trace ids always land at the root of the record.
type traceHandler struct {
	base   slog.Handler
	groups []string
	attrs  []slog.Attr
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := h.base

	var ids []slog.Attr
	if traceID := TraceID(ctx); traceID != "" {
		ids = append(ids, slog.String("trace_id", traceID))
	}
	if spanID := SpanID(ctx); spanID != "" {
		ids = append(ids, slog.String("span_id", spanID))
	}
	if len(ids) > 0 {
		handler = handler.WithAttrs(ids)
	}

	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	for _, group := range h.groups {
		handler = handler.WithGroup(group)
	}

	return handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &traceHandler{base: h.base, groups: h.groups, attrs: merged}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &traceHandler{base: h.base, groups: groups, attrs: h.attrs}
}
