package middlewares

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/valkyrjaio/valkyrja/internal"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// Timeout returns middleware that enforces a request deadline. If the
// wrapped chain has not returned by then the request fails with 503
// wrapping a *TimeoutError. A non-positive d means DefaultTimeout.
//
// The chain runs on its own goroutine against a buffered response that is
// copied out only when it finishes in time. After the deadline its writes
// fail with http.ErrHandlerTimeout and c.Context() is cancelled, so long
// operations should watch c.Context().Done() and stop early. Streaming
// through Flush is not supported under Timeout.
func Timeout(d time.Duration) internal.Middleware {
	if d <= 0 {
		d = DefaultTimeout
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			ctx, cancel := context.WithTimeout(c.Context(), d)
			defer cancel()
			ctx = context.WithValue(ctx, timeoutContextKey{}, ctx)

			tw := &timeoutWriter{h: c.Response().Header().Clone()}
			fork, ok := internal.Fork(c, tw, c.Request().WithContext(ctx))
			if !ok {
				c.Set(timeoutContextKey{}, ctx)
				return next(c)
			}

			done := make(chan error, 1)
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				done <- next(fork)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case err := <-done:
				tw.copyTo(c.Response())
				return err
			case <-ctx.Done():
				tw.seal()
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ctx.Err()
				}
				c.LogWarn("request timeout", "timeout", d.String())
				return internal.ErrServiceUnavailable("request timeout",
					internal.WithError(&TimeoutError{Duration: d}))
			}
		}
	}
}

type timeoutContextKey struct{}

// GetTimeoutContext returns the deadline context set by Timeout, or the
// request context when Timeout is not in the chain.
func GetTimeoutContext(c internal.Context) context.Context {
	if v, ok := c.Get(timeoutContextKey{}).(context.Context); ok {
		return v
	}
	return c.Context()
}

// timeoutWriter buffers the handler's response until it finishes. Once
// sealed it rejects every write.
type timeoutWriter struct {
	h           http.Header
	buf         bytes.Buffer
	mu          sync.Mutex
	code        int
	wroteHeader bool
	sealed      bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.h }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.sealed || tw.wroteHeader {
		return
	}
	tw.code = code
	tw.wroteHeader = true
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.sealed {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wroteHeader {
		tw.code = http.StatusOK
		tw.wroteHeader = true
	}
	return tw.buf.Write(b)
}

func (tw *timeoutWriter) seal() {
	tw.mu.Lock()
	tw.sealed = true
	tw.mu.Unlock()
}

// copyTo replays the buffered response onto w. Nothing is written when the
// handler wrote nothing, so the kernel's default response still applies.
func (tw *timeoutWriter) copyTo(w http.ResponseWriter) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.sealed = true

	dst := w.Header()
	for k := range dst {
		if _, ok := tw.h[k]; !ok {
			dst.Del(k)
		}
	}
	for k, v := range tw.h {
		dst[k] = v
	}
	if !tw.wroteHeader {
		return
	}
	w.WriteHeader(tw.code)
	_, _ = w.Write(tw.buf.Bytes())
}
