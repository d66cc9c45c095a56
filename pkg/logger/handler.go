package logger

import (
	"context"
	"errors"
	"log/slog"
)

// ContextExtractor pulls one attribute out of a log call's context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// ContextValue extracts the context value stored under key as attr.
// Missing values and zero values of T are skipped.
//
//	logger.New(logger.ContextValue[string](tenantKey{}, "tenant"))
func ContextValue[T comparable](key any, attr string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		var zero T
		v, ok := ctx.Value(key).(T)
		if !ok || v == zero {
			return slog.Attr{}, false
		}
		return slog.Any(attr, v), true
	}
}

// Decorate wraps next so that every record carries the attributes the
// extractors find in its context. Nil extractors are dropped. When two
// extractors produce the same key the first one wins.
func Decorate(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	h := &contextHandler{next: next}
	for _, ex := range extractors {
		if ex != nil {
			h.extractors = append(h.extractors, ex)
		}
	}
	return h
}

type contextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	var seen map[string]struct{}
	for _, ex := range h.extractors {
		attr, ok := ex(ctx)
		if !ok {
			continue
		}
		if _, dup := seen[attr.Key]; dup {
			continue
		}
		if seen == nil {
			seen = make(map[string]struct{}, len(h.extractors))
		}
		seen[attr.Key] = struct{}{}
		rec.AddAttrs(attr)
	}
	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}

// Fanout sends each record to every handler enabled for its level. A
// failing handler does not stop the others; their errors are joined.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, rec.Level) {
			errs = append(errs, h.Handle(ctx, rec.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// NewNope returns a logger that drops everything.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
