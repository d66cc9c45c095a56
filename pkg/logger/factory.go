package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger settings.
type Config struct {
	Level  string       `env:"LOG_LEVEL" envDefault:"info" yaml:"level" toml:"level"`
	Format string       `env:"LOG_FORMAT" envDefault:"json" yaml:"format" toml:"format"`
	Sentry SentryConfig `yaml:"sentry" toml:"sentry"`
}

// New creates a JSON-formatted logger writing to stdout with optional context extractors.
func New(extractors ...ContextExtractor) *slog.Logger {
	return NewWithConfig(Config{}, extractors...)
}

// NewWithConfig creates a logger from cfg.
// Sentry fan-out is enabled when cfg.Sentry.DSN is set.
func NewWithConfig(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	if cfg.Sentry.DSN != "" {
		return NewWithSentry(cfg.Sentry, cfg, extractors...)
	}
	return slog.New(Decorate(newHandler(os.Stdout, cfg), extractors...))
}

// newHandler builds the stdout handler for cfg.
func newHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ParseLevel converts a level name to slog.Level.
// Unknown or empty names map to slog.LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
