// Package cache provides a generic Cache interface with interchangeable
// adapters: an in-memory LRU, Redis, a Null cache that stores nothing and a
// Log decorator that reports every call through slog.
//
// TTL semantics for Set:
//   - Positive duration: item expires after this duration
//   - Zero: use the adapter's default TTL (1 hour unless configured)
//   - Negative ([Forever]): item never expires
//
// # Adapters
//
//	mem := cache.NewMemory[string](cache.WithMaxEntries(10_000))
//	defer mem.Close()
//
//	client := redis.MustOpen(ctx, cfg.Redis.URL)
//	shared := cache.NewRedis[User](client, nil, cache.WithPrefix("users"))
//
//	quiet := cache.NewNull[string]()
//	traced := cache.NewLog[string](mem, logger)
//
// [Open] picks an adapter from configuration (driver memory, redis, null or
// log), which is how the application container wires the cache.
//
// # Helpers
//
// [Remember] computes a value on a miss, sharing the computation between
// concurrent callers of the same key:
//
//	user, err := cache.Remember(ctx, users, "user:42", func(ctx context.Context) (User, time.Duration, error) {
//	    u, err := repo.Find(ctx, 42)
//	    return u, 10 * time.Minute, err
//	})
//
// [Pull], [Many] and [SetMany] cover the remaining bulk operations, and
// [Increment]/[Decrement] maintain counters atomically on the memory and
// Redis adapters.
//
// # Errors
//
//   - [ErrNotFound]: key missing or expired
//   - [ErrClosed]: memory cache used after Close
//   - [ErrMarshal], [ErrUnmarshal]: value serialization failed
//   - [ErrUnknownDriver]: Open got an unsupported driver
package cache
