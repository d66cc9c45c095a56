package redis

import (
	"context"
	"errors"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
)

// Open creates a Redis client and pings it, retrying with exponential
// backoff. Both redis:// and rediss:// (TLS) URLs are accepted.
//
// Example:
//
//	client, err := redis.Open(ctx, cfg.Redis.URL, cfg.Redis.Options()...)
func Open(ctx context.Context, url string, opts ...Option) (redis.UniversalClient, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, ErrInvalidURL
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}
	redisOpts.PoolSize = o.poolSize
	redisOpts.MinIdleConns = o.minIdleConns
	redisOpts.ConnMaxIdleTime = o.maxIdleTime
	redisOpts.ConnMaxLifetime = o.maxActiveTime
	redisOpts.ReadTimeout = o.readTimeout
	redisOpts.WriteTimeout = o.writeTimeout
	redisOpts.DialTimeout = o.dialTimeout

	client, err := retry.DoWithData(
		func() (redis.UniversalClient, error) {
			c := redis.NewClient(redisOpts)
			if err := c.Ping(ctx).Err(); err != nil {
				_ = c.Close()
				return nil, err
			}
			return c, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(max(o.retryAttempts, 1))),
		retry.Delay(o.retryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, errors.Join(ErrUnreachable, err)
	}
	return client, nil
}

// MustOpen is Open that panics on failure. Use it in main where a missing
// Redis is fatal.
func MustOpen(ctx context.Context, url string, opts ...Option) redis.UniversalClient {
	client, err := Open(ctx, url, opts...)
	if err != nil {
		panic(err)
	}
	return client
}
