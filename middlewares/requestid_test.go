package middlewares_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valkyrjaio/valkyrja/internal"
	"github.com/valkyrjaio/valkyrja/middlewares"
	"github.com/valkyrjaio/valkyrja/pkg/id"
	"github.com/valkyrjaio/valkyrja/pkg/logger"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates a new id", func(t *testing.T) {
		t.Parallel()

		var seen string
		rec, err := run(t, get(), middlewares.RequestID(), func(c internal.Context) error {
			seen = middlewares.GetRequestID(c)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, id.Valid(seen), seen)
		assert.Equal(t, seen, rec.Header().Get(middlewares.DefaultRequestIDHeader))
	})

	t.Run("keeps an incoming id", func(t *testing.T) {
		t.Parallel()

		for _, header := range []string{"X-Request-ID", "X-Correlation-ID"} {
			req := get()
			req.Header.Set(header, "upstream-1")
			rec, _ := run(t, req, middlewares.RequestID(), noContent)
			assert.Equal(t, "upstream-1", rec.Header().Get("X-Request-ID"), header)
		}
	})

	t.Run("oversized incoming id is replaced", func(t *testing.T) {
		t.Parallel()

		req := get()
		req.Header.Set("X-Request-ID", strings.Repeat("a", 200))
		rec, _ := run(t, req, middlewares.RequestID(), noContent)
		assert.True(t, id.Valid(rec.Header().Get("X-Request-ID")))
	})

	t.Run("custom sources generator and header", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.RequestID(
			middlewares.WithRequestIDSources(internal.FromQuery("rid")),
			middlewares.WithRequestIDGenerator(func() string { return "generated" }),
			middlewares.WithRequestIDResponseHeader("X-Trace"),
		)

		req := httptest.NewRequest(http.MethodGet, "/?rid=from-query", nil)
		req.Header.Set("X-Request-ID", "ignored")
		rec, _ := run(t, req, mw, noContent)
		assert.Equal(t, "from-query", rec.Header().Get("X-Trace"))
		assert.Empty(t, rec.Header().Get("X-Request-ID"))

		rec, _ = run(t, get(), mw, noContent)
		assert.Equal(t, "generated", rec.Header().Get("X-Trace"))
	})

	t.Run("no id outside the middleware", func(t *testing.T) {
		t.Parallel()

		run(t, get(), func(next internal.HandlerFunc) internal.HandlerFunc { return next }, func(c internal.Context) error {
			assert.Empty(t, middlewares.GetRequestID(c))
			return nil
		})
	})
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	_, ok := middlewares.RequestIDExtractor()(context.Background())
	assert.False(t, ok)

	var buf bytes.Buffer
	log := slog.New(logger.Decorate(slog.NewJSONHandler(&buf, nil), middlewares.RequestIDExtractor()))

	req := get()
	req.Header.Set("X-Request-ID", "req-42")
	run(t, req, middlewares.RequestID(), func(c internal.Context) error {
		c.LogInfo("handled")
		return nil
	}, internal.WithCustomLogger(log))

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}
