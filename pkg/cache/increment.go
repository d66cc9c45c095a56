package cache

import (
	"context"
	"errors"
)

type incrementer interface {
	Increment(ctx context.Context, key string, by int64) (int64, error)
}

type unwrapper[V any] interface {
	Unwrap() Cache[V]
}

// Increment adds by to the counter at key and returns the new value.
// Memory and Redis adapters do this atomically; other adapters fall back
// to a read-modify-write. Use a negative by to decrement.
func Increment(ctx context.Context, c Cache[int64], key string, by int64) (int64, error) {
unwrap:
	for {
		switch a := c.(type) {
		case *Memory[int64]:
			return a.Update(ctx, key, func(cur int64, _ bool) (int64, error) {
				return cur + by, nil
			})
		case incrementer:
			return a.Increment(ctx, key, by)
		case unwrapper[int64]:
			c = a.Unwrap()
		default:
			break unwrap
		}
	}

	cur, err := c.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	cur += by
	if err := c.Set(ctx, key, cur, 0); err != nil {
		return 0, err
	}
	return cur, nil
}

// Decrement subtracts by from the counter at key.
func Decrement(ctx context.Context, c Cache[int64], key string, by int64) (int64, error) {
	return Increment(ctx, c, key, -by)
}
