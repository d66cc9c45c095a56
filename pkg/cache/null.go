package cache

import (
	"context"
	"time"
)

// Null is a cache that stores nothing. Every lookup misses.
type Null[V any] struct{}

// NewNull returns a cache that discards writes.
func NewNull[V any]() Null[V] { return Null[V]{} }

func (Null[V]) Get(context.Context, string) (V, error) {
	var zero V
	return zero, ErrNotFound
}

func (Null[V]) Set(context.Context, string, V, time.Duration) error { return nil }
func (Null[V]) Delete(context.Context, string) error                { return nil }
func (Null[V]) Has(context.Context, string) (bool, error)           { return false, nil }
func (Null[V]) Clear(context.Context) error                         { return nil }
func (Null[V]) Close() error                                        { return nil }

var _ Cache[any] = Null[any]{}
