package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// identityKeys appear at most once per JSON record. Session loggers carry
// session_id and WithContext adds it again from the request context; the
// first value wins, matching the console handler.
var identityKeys = map[string]bool{
	FieldComponent:     true,
	FieldSessionID:     true,
	FieldCorrelationID: true,
}

type jsonHandler struct {
	inner slog.Handler
	// seen holds identity keys already attached through WithAttrs.
	seen map[string]bool
	// grouped is set once WithGroup nests further attrs.
	grouped bool
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) (slog.Handler, error) {
	opts := slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	}
	return &jsonHandler{inner: slog.NewJSONHandler(w, &opts), seen: map[string]bool{}}, nil
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return attr
}

func (h *jsonHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *jsonHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.grouped {
		return h.inner.Handle(ctx, record)
	}
	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	var seen map[string]bool
	record.Attrs(func(attr slog.Attr) bool {
		if identityKeys[attr.Key] {
			if h.seen[attr.Key] || seen[attr.Key] {
				return true
			}
			if seen == nil {
				seen = make(map[string]bool, len(identityKeys))
			}
			seen[attr.Key] = true
		}
		out.AddAttrs(attr)
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *jsonHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.grouped {
		return &jsonHandler{inner: h.inner.WithAttrs(attrs), seen: h.seen, grouped: true}
	}
	seen := make(map[string]bool, len(h.seen)+1)
	for k := range h.seen {
		seen[k] = true
	}
	kept := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		if identityKeys[attr.Key] {
			if seen[attr.Key] {
				continue
			}
			seen[attr.Key] = true
		}
		kept = append(kept, attr)
	}
	return &jsonHandler{inner: h.inner.WithAttrs(kept), seen: seen}
}

func (h *jsonHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &jsonHandler{inner: h.inner.WithGroup(name), seen: h.seen, grouped: true}
}
