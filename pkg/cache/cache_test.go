package cache_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/valkyrjaio/valkyrja/pkg/cache"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newMemory[V any](t *testing.T, opts ...cache.Option) *cache.Memory[V] {
	t.Helper()
	c := cache.NewMemory[V](opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		c := newMemory[string](t)
		_, err := c.Get(ctx, "missing")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()
		c := newMemory[int](t)
		require.NoError(t, c.Set(ctx, "answer", 42, time.Minute))

		v, err := c.Get(ctx, "answer")
		require.NoError(t, err)
		require.Equal(t, 42, v)

		ok, err := c.Has(ctx, "answer")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		t.Parallel()
		c := newMemory[string](t, cache.WithCleanupInterval(0))
		require.NoError(t, c.Set(ctx, "k", "v", time.Millisecond))
		time.Sleep(5 * time.Millisecond)

		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrNotFound)
		require.Equal(t, 0, c.Len())
	})

	t.Run("zero ttl uses default", func(t *testing.T) {
		t.Parallel()
		c := newMemory[string](t, cache.WithDefaultTTL(time.Millisecond), cache.WithCleanupInterval(0))
		require.NoError(t, c.Set(ctx, "k", "v", 0))
		time.Sleep(5 * time.Millisecond)

		ok, err := c.Has(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("forever never expires", func(t *testing.T) {
		t.Parallel()
		c := newMemory[string](t, cache.WithDefaultTTL(time.Millisecond))
		require.NoError(t, c.Set(ctx, "k", "v", cache.Forever))
		time.Sleep(5 * time.Millisecond)

		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, "v", v)
	})

	t.Run("lru eviction keeps recently used", func(t *testing.T) {
		t.Parallel()
		c := newMemory[string](t, cache.WithMaxEntries(2))
		var evicted []string
		c.OnEvict(func(key, _ string) { evicted = append(evicted, key) })

		require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
		require.NoError(t, c.Set(ctx, "b", "2", time.Minute))
		_, err := c.Get(ctx, "a")
		require.NoError(t, err)
		require.NoError(t, c.Set(ctx, "c", "3", time.Minute))

		require.Equal(t, []string{"b"}, evicted)
		ok, _ := c.Has(ctx, "a")
		require.True(t, ok)
		require.Equal(t, 2, c.Len())
	})

	t.Run("janitor sweeps expired entries", func(t *testing.T) {
		t.Parallel()
		c := newMemory[string](t, cache.WithCleanupInterval(2*time.Millisecond))
		require.NoError(t, c.Set(ctx, "k", "v", time.Millisecond))

		require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 2*time.Millisecond)
	})

	t.Run("delete and clear", func(t *testing.T) {
		t.Parallel()
		c := newMemory[string](t)
		require.NoError(t, c.Set(ctx, "a", "1", 0))
		require.NoError(t, c.Set(ctx, "b", "2", 0))

		require.NoError(t, c.Delete(ctx, "a"))
		require.NoError(t, c.Delete(ctx, "missing"))
		require.Equal(t, 1, c.Len())

		require.NoError(t, c.Clear(ctx))
		require.Equal(t, 0, c.Len())
	})

	t.Run("closed cache refuses work", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemory[string]()
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())

		require.ErrorIs(t, c.Set(ctx, "k", "v", 0), cache.ErrClosed)
		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrClosed)
	})
}

func TestRemember(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("computes once for concurrent misses", func(t *testing.T) {
		t.Parallel()
		c := newMemory[string](t)
		var calls atomic.Int32
		release := make(chan struct{})

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := cache.Remember(ctx, c, "remember:once", func(context.Context) (string, time.Duration, error) {
					calls.Add(1)
					<-release
					return "value", time.Minute, nil
				})
				assert.NoError(t, err)
				assert.Equal(t, "value", v)
			}()
		}
		time.Sleep(10 * time.Millisecond)
		close(release)
		wg.Wait()

		require.Equal(t, int32(1), calls.Load())
		v, err := c.Get(ctx, "remember:once")
		require.NoError(t, err)
		require.Equal(t, "value", v)
	})

	t.Run("error is not cached", func(t *testing.T) {
		t.Parallel()
		c := newMemory[string](t)
		boom := errors.New("boom")

		_, err := cache.Remember(ctx, c, "remember:err", func(context.Context) (string, time.Duration, error) {
			return "", 0, boom
		})
		require.ErrorIs(t, err, boom)

		ok, _ := c.Has(ctx, "remember:err")
		require.False(t, ok)
	})
}

func TestBulkHelpers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newMemory[int](t)

	require.NoError(t, cache.SetMany(ctx, c, map[string]int{"a": 1, "b": 2}, time.Minute))

	got, err := cache.Many(ctx, c, "a", "b", "missing")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"a": 1, "b": 2}, got)

	v, err := cache.Pull(ctx, c, "a")
	require.NoError(t, err)
	require.Equal(t, 1, v)
	_, err = c.Get(ctx, "a")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestIncrement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("memory is atomic", func(t *testing.T) {
		t.Parallel()
		c := newMemory[int64](t)

		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := cache.Increment(ctx, c, "hits", 1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		v, err := c.Get(ctx, "hits")
		require.NoError(t, err)
		require.Equal(t, int64(100), v)

		v, err = cache.Decrement(ctx, c, "hits", 40)
		require.NoError(t, err)
		require.Equal(t, int64(60), v)
	})

	t.Run("through log decorator", func(t *testing.T) {
		t.Parallel()
		mem := newMemory[int64](t)
		c := cache.NewLog[int64](mem, slog.New(slog.DiscardHandler))

		v, err := cache.Increment(ctx, c, "n", 5)
		require.NoError(t, err)
		require.Equal(t, int64(5), v)
	})

	t.Run("null falls back to read-modify-write", func(t *testing.T) {
		t.Parallel()
		v, err := cache.Increment(ctx, cache.NewNull[int64](), "n", 3)
		require.NoError(t, err)
		require.Equal(t, int64(3), v)
	})
}

func TestNull(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := cache.NewNull[string]()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrNotFound)
	ok, err := c.Has(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, c.Clear(ctx))
	require.NoError(t, c.Close())
}

func TestLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := cache.NewLog[string](newMemory[string](t), logger)

	require.NoError(t, c.Set(ctx, "greeting", "hello", time.Minute))
	v, err := c.Get(ctx, "greeting")
	require.NoError(t, err)
	require.Equal(t, "hello", v)
	_, err = c.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrNotFound)

	out := buf.String()
	require.Contains(t, out, `msg="cache set"`)
	require.Contains(t, out, "key=greeting")
	require.Contains(t, out, "hit=true")
	require.Contains(t, out, "hit=false")
	require.Contains(t, out, "component=cache")
	require.NotContains(t, out, "error=")
}

func TestOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     cache.Config
		wantErr error
		check   func(t *testing.T, c cache.Cache[string])
	}{
		{
			name: "memory by default",
			cfg:  cache.Config{},
			check: func(t *testing.T, c cache.Cache[string]) {
				require.IsType(t, &cache.Memory[string]{}, c)
			},
		},
		{
			name: "null",
			cfg:  cache.Config{Driver: "NULL"},
			check: func(t *testing.T, c cache.Cache[string]) {
				require.IsType(t, cache.Null[string]{}, c)
			},
		},
		{
			name: "log",
			cfg:  cache.Config{Driver: "log"},
			check: func(t *testing.T, c cache.Cache[string]) {
				require.IsType(t, &cache.Log[string]{}, c)
			},
		},
		{name: "redis needs a client", cfg: cache.Config{Driver: "redis"}, wantErr: cache.ErrUnknownDriver},
		{name: "unknown", cfg: cache.Config{Driver: "apcu"}, wantErr: cache.ErrUnknownDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := cache.Open[string](tt.cfg, nil, slog.New(slog.DiscardHandler))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = c.Close() })
			tt.check(t, c)
		})
	}
}
