package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return slog.String("request_id", v), true
	}
	return slog.Attr{}, false
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestDecorate(t *testing.T) {
	t.Parallel()

	t.Run("injects extracted attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(Decorate(slog.NewJSONHandler(&buf, nil), requestIDExtractor))

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
		log.InfoContext(ctx, "hello")

		out := decode(t, &buf)
		require.Equal(t, "req-1", out["request_id"])
		require.Equal(t, "hello", out["msg"])
	})

	t.Run("skips missing values", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(Decorate(slog.NewJSONHandler(&buf, nil), requestIDExtractor))
		log.Info("hello")

		out := decode(t, &buf)
		require.NotContains(t, out, "request_id")
	})

	t.Run("ignores nil extractors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(Decorate(slog.NewJSONHandler(&buf, nil), nil, requestIDExtractor))
		require.NotPanics(t, func() { log.Info("hello") })
	})

	t.Run("keeps extractors after With", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(Decorate(slog.NewJSONHandler(&buf, nil), requestIDExtractor)).
			With("component", "http")

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-2")
		log.InfoContext(ctx, "hello")

		out := decode(t, &buf)
		require.Equal(t, "http", out["component"])
		require.Equal(t, "req-2", out["request_id"])
	})
}

func TestDecorate_FirstExtractorWins(t *testing.T) {
	t.Parallel()

	type tenantKey struct{}
	shadow := func(context.Context) (slog.Attr, bool) { return slog.String("tenant", "shadow"), true }

	var buf bytes.Buffer
	log := slog.New(Decorate(slog.NewJSONHandler(&buf, nil),
		ContextValue[string](tenantKey{}, "tenant"),
		shadow,
	))

	log.InfoContext(context.WithValue(context.Background(), tenantKey{}, "acme"), "hello")
	require.Equal(t, "acme", decode(t, &buf)["tenant"])

	buf.Reset()
	log.InfoContext(context.WithValue(context.Background(), tenantKey{}, ""), "hello")
	require.Equal(t, "shadow", decode(t, &buf)["tenant"], "zero value is skipped")
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestFanout_KeepsGoingAfterFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := Fanout(failingHandler{slog.NewJSONHandler(&buf, nil)}, slog.NewJSONHandler(&buf, nil))

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0))
	require.EqualError(t, err, "sink down")
	require.Contains(t, buf.String(), "hello")
}

func TestFanout(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	h := Fanout(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h)

	log.Info("info only")
	require.NotZero(t, a.Len())
	require.Zero(t, b.Len())

	log.Error("both")
	require.NotZero(t, b.Len())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		require.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, Config{Level: "warn", Format: "text"}))

	log.Info("dropped")
	require.Zero(t, buf.Len())

	log.Warn("kept")
	require.Contains(t, buf.String(), "msg=kept")
}

func TestNewNope(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() { NewNope().Error("discarded") })
}
