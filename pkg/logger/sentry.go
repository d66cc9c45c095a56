package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN" yaml:"dsn" toml:"dsn"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production" yaml:"environment" toml:"environment"`
	// MinLevel is the lowest level stored as a Sentry log. Errors always
	// become issues.
	MinLevel slog.Level `yaml:"-" toml:"-"`
}

// NewWithSentry logs to stdout and to Sentry. Without a DSN, or when the
// SDK fails to start, it logs to stdout only.
func NewWithSentry(cfg SentryConfig, base Config, extractors ...ContextExtractor) *slog.Logger {
	stdout := newHandler(os.Stdout, base)
	if cfg.DSN == "" {
		return slog.New(Decorate(stdout, extractors...))
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(stdout).Error("sentry disabled", slog.String("error", err.Error()))
		return slog.New(Decorate(stdout, extractors...))
	}

	return slog.New(Decorate(Fanout(stdout, sentryHandler(cfg.MinLevel)), extractors...))
}

func sentryHandler(minLevel slog.Level) slog.Handler {
	logLevels := []slog.Level{slog.LevelWarn, slog.LevelError}
	if minLevel >= slog.LevelError {
		logLevels = []slog.Level{slog.LevelError}
	}
	return sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevels,
	}.NewSentryHandler(context.Background())
}
