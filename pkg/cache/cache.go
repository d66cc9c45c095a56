package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a key-value cache with TTL support.
//
// TTL semantics for Set:
//   - Positive duration: item expires after this duration
//   - Zero: use the adapter's configured default TTL
//   - Negative: item never expires
type Cache[V any] interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (V, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Has reports whether a key exists and has not expired.
	Has(ctx context.Context, key string) (bool, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Close releases resources held by the adapter.
	Close() error
}

// Forever is the TTL that stores an entry without expiration.
const Forever time.Duration = -1

// Marshaler serializes values for adapters that store bytes.
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

// JSON returns the default JSON marshaler.
func JSON[V any]() Marshaler[V] {
	return jsonMarshaler[V]{}
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

var sfGroup singleflight.Group

type rememberResult[V any] struct {
	val V
	ttl time.Duration
}

// Remember returns the cached value for key or computes it with fn on a miss.
// Concurrent misses on the same key share a single fn call.
// If fn fails nothing is cached and the error is returned.
//
// Example:
//
//	user, err := cache.Remember(ctx, users, "user:42", func(ctx context.Context) (User, time.Duration, error) {
//	    u, err := repo.Find(ctx, 42)
//	    return u, 10 * time.Minute, err
//	})
func Remember[V any](ctx context.Context, c Cache[V], key string, fn func(ctx context.Context) (V, time.Duration, error)) (V, error) {
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	v, err, _ := sfGroup.Do(key, func() (any, error) {
		val, ttl, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return rememberResult[V]{val: val, ttl: ttl}, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	r := v.(rememberResult[V])
	_ = c.Set(ctx, key, r.val, r.ttl)

	return r.val, nil
}

// Pull returns the value for key and removes it.
func Pull[V any](ctx context.Context, c Cache[V], key string) (V, error) {
	v, err := c.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := c.Delete(ctx, key); err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}

// Many returns the values found for keys. Missing keys are absent from the map.
func Many[V any](ctx context.Context, c Cache[V], keys ...string) (map[string]V, error) {
	out := make(map[string]V, len(keys))
	for _, key := range keys {
		v, err := c.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// SetMany stores every entry of values with the same TTL.
func SetMany[V any](ctx context.Context, c Cache[V], values map[string]V, ttl time.Duration) error {
	for key, v := range values {
		if err := c.Set(ctx, key, v, ttl); err != nil {
			return err
		}
	}
	return nil
}
