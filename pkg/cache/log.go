package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Log decorates a cache, logging every operation at debug level.
type Log[V any] struct {
	next   Cache[V]
	logger *slog.Logger
}

// NewLog wraps next. A nil next logs calls against a Null cache.
func NewLog[V any](next Cache[V], logger *slog.Logger) *Log[V] {
	if next == nil {
		next = Null[V]{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Log[V]{next: next, logger: logger.With(slog.String("component", "cache"))}
}

func (l *Log[V]) Get(ctx context.Context, key string) (V, error) {
	v, err := l.next.Get(ctx, key)
	l.logger.DebugContext(ctx, "cache get",
		slog.String("key", key),
		slog.Bool("hit", err == nil),
		errAttr(err),
	)
	return v, err
}

func (l *Log[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	err := l.next.Set(ctx, key, value, ttl)
	l.logger.DebugContext(ctx, "cache set", slog.String("key", key), slog.Duration("ttl", ttl), errAttr(err))
	return err
}

func (l *Log[V]) Delete(ctx context.Context, key string) error {
	err := l.next.Delete(ctx, key)
	l.logger.DebugContext(ctx, "cache delete", slog.String("key", key), errAttr(err))
	return err
}

func (l *Log[V]) Has(ctx context.Context, key string) (bool, error) {
	ok, err := l.next.Has(ctx, key)
	l.logger.DebugContext(ctx, "cache has", slog.String("key", key), slog.Bool("found", ok), errAttr(err))
	return ok, err
}

func (l *Log[V]) Clear(ctx context.Context) error {
	err := l.next.Clear(ctx)
	l.logger.DebugContext(ctx, "cache clear", errAttr(err))
	return err
}

func (l *Log[V]) Close() error {
	return l.next.Close()
}

// Unwrap returns the decorated cache.
func (l *Log[V]) Unwrap() Cache[V] { return l.next }

// errAttr reports errors other than a plain miss.
func errAttr(err error) slog.Attr {
	if err == nil || errors.Is(err, ErrNotFound) {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

var _ Cache[any] = (*Log[any])(nil)
