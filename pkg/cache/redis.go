package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a cache backed by Redis. Values go through the Marshaler
// (JSON by default).
type Redis[V any] struct {
	client    redis.UniversalClient
	opts      *options
	marshaler Marshaler[V]
}

// NewRedis creates a Redis-backed cache. The client comes from pkg/redis.
// A nil Marshaler selects JSON.
//
// Example:
//
//	client := redis.MustOpen(ctx, cfg.Redis.URL)
//	sessions := cache.NewRedis[[]byte](client, nil, cache.WithPrefix("session"))
func NewRedis[V any](client redis.UniversalClient, m Marshaler[V], opts ...Option) *Redis[V] {
	if m == nil {
		m = jsonMarshaler[V]{}
	}
	return &Redis[V]{
		client:    client,
		opts:      newOptions(opts),
		marshaler: m,
	}
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return r.marshaler.Unmarshal(data)
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := r.marshaler.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), data, r.ttl(ttl)).Err()
}

// ttl maps cache TTL semantics onto Redis, where 0 means no expiration.
func (r *Redis[V]) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		ttl = r.opts.defaultTTL
	}
	return max(ttl, 0)
}

func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis[V]) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Increment adds by to the integer stored at key using INCRBY.
// A missing key starts from zero and gets no expiration.
func (r *Redis[V]) Increment(ctx context.Context, key string, by int64) (int64, error) {
	n, err := r.client.IncrBy(ctx, r.key(key), by).Result()
	if err != nil {
		return 0, errors.Join(ErrNotNumeric, err)
	}
	return n, nil
}

// Clear removes the entries under the prefix with SCAN, or the whole
// database with FLUSHDB when no prefix is set.
func (r *Redis[V]) Clear(ctx context.Context) error {
	if r.opts.prefix == "" {
		return r.client.FlushDB(ctx).Err()
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.opts.prefix+":*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if cursor = next; cursor == 0 {
			return nil
		}
	}
}

// Close is a no-op; the client is owned and shut down by pkg/redis.
func (r *Redis[V]) Close() error {
	return nil
}

func (r *Redis[V]) key(key string) string {
	if r.opts.prefix == "" {
		return key
	}
	return r.opts.prefix + ":" + key
}

var _ Cache[any] = (*Redis[any])(nil)
