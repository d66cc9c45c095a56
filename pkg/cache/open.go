package cache

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverNull   = "null"
	DriverLog    = "log"
)

// Config selects and tunes a cache adapter.
type Config struct {
	Driver     string        `yaml:"driver" toml:"driver" env:"CACHE_DRIVER" envDefault:"memory"`
	Prefix     string        `yaml:"prefix" toml:"prefix" env:"CACHE_PREFIX"`
	DefaultTTL time.Duration `yaml:"default_ttl" toml:"default_ttl" env:"CACHE_DEFAULT_TTL" envDefault:"1h"`
	MaxEntries int           `yaml:"max_entries" toml:"max_entries" env:"CACHE_MAX_ENTRIES"`
}

// Open builds the adapter named by cfg.Driver. The Redis driver needs a
// non-nil client; the log driver logs calls against a Null cache.
func Open[V any](cfg Config, client redis.UniversalClient, logger *slog.Logger) (Cache[V], error) {
	var opts []Option
	if cfg.DefaultTTL != 0 {
		opts = append(opts, WithDefaultTTL(cfg.DefaultTTL))
	}
	if cfg.MaxEntries > 0 {
		opts = append(opts, WithMaxEntries(cfg.MaxEntries))
	}
	if cfg.Prefix != "" {
		opts = append(opts, WithPrefix(cfg.Prefix))
	}

	switch strings.ToLower(cfg.Driver) {
	case "", DriverMemory:
		return NewMemory[V](opts...), nil
	case DriverRedis:
		if client == nil {
			return nil, fmt.Errorf("%w: redis driver without a client", ErrUnknownDriver)
		}
		return NewRedis[V](client, nil, opts...), nil
	case DriverNull:
		return NewNull[V](), nil
	case DriverLog:
		return NewLog[V](nil, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
