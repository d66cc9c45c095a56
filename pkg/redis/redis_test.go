package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpenValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := Open(ctx, "")
	require.ErrorIs(t, err, ErrNoURL)

	for _, url := range []string{
		"http://localhost:6379",
		"localhost:6379",
		"postgresql://localhost:6379",
		"redis://localhost:notaport",
		"redis://localhost:6379/notanumber",
	} {
		t.Run(url, func(t *testing.T) {
			t.Parallel()
			client, err := Open(ctx, url)
			require.ErrorIs(t, err, ErrInvalidURL)
			require.Nil(t, client)
		})
	}
}

func TestOpenGivesUpOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := Open(ctx, "redis://127.0.0.1:1/0", WithRetry(5, time.Second), WithDialTimeout(50*time.Millisecond))
	require.ErrorIs(t, err, ErrUnreachable)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestHealthcheckNilClient(t *testing.T) {
	t.Parallel()
	err := Healthcheck(nil)(context.Background())
	require.ErrorIs(t, err, ErrUnhealthy)
	require.ErrorIs(t, err, ErrNilClient)
}

type closer struct {
	closed bool
	err    error
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	c := &closer{err: errors.New("close error")}
	err := Shutdown(c)(context.Background())
	require.EqualError(t, err, "close error")
	require.True(t, c.closed)
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	o := defaultOptions()
	for _, opt := range (Config{PoolSize: 20, MinIdleConns: 2, DialTimeout: time.Second, Retries: 7}).Options() {
		opt(o)
	}
	require.Equal(t, 20, o.poolSize)
	require.Equal(t, 2, o.minIdleConns)
	require.Equal(t, time.Second, o.dialTimeout)
	require.Equal(t, 7, o.retryAttempts)

	require.Empty(t, Config{}.Options())
}
