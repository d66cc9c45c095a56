package session

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valkyrjaio/valkyrja/pkg/cache"
	"github.com/valkyrjaio/valkyrja/pkg/orm"
)

// Driver names accepted by Open.
const (
	DriverNull   = "null"
	DriverMemory = "memory"
	DriverCache  = "cache"
	DriverCookie = "cookie"
	DriverLog    = "log"
	DriverSQL    = "sql"
)

// Config selects the session store and the cookie carrying its token.
type Config struct {
	Driver     string        `yaml:"driver" toml:"driver" env:"SESSION_DRIVER" envDefault:"memory"`
	Table      string        `yaml:"table" toml:"table" env:"SESSION_TABLE" envDefault:"sessions"`
	CookieName string        `yaml:"cookie_name" toml:"cookie_name" env:"SESSION_COOKIE" envDefault:"__sid"`
	Lifetime   time.Duration `yaml:"lifetime" toml:"lifetime" env:"SESSION_LIFETIME" envDefault:"720h"`
	Domain     string        `yaml:"domain" toml:"domain" env:"SESSION_DOMAIN"`
	Secure     bool          `yaml:"secure" toml:"secure" env:"SESSION_SECURE"`

	// PruneSchedule is the cron spec for deleting expired rows from the
	// sql driver. Empty disables pruning.
	PruneSchedule string `yaml:"prune_schedule" toml:"prune_schedule" env:"SESSION_PRUNE_SCHEDULE" envDefault:"@hourly"`
}

// Backends are the dependencies drivers may need. Only the one the
// configured driver uses must be set.
type Backends struct {
	Cache  cache.Cache[[]byte] // cache driver
	Cipher Cipher              // cookie driver
	DB     *orm.DB             // sql driver
	Logger *slog.Logger        // log driver
}

// Open builds the store named by cfg.Driver. The memory driver returns a
// *MemoryStore the caller should Close.
func Open(cfg Config, b Backends) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverNull:
		return NullStore{}, nil
	case DriverCache:
		if b.Cache == nil {
			return nil, fmt.Errorf("%w: cache driver without a cache", ErrUnknownDriver)
		}
		return NewCacheStore(b.Cache), nil
	case DriverCookie:
		if b.Cipher == nil {
			return nil, fmt.Errorf("%w: cookie driver without a cipher", ErrUnknownDriver)
		}
		return NewCookieStore(b.Cipher), nil
	case DriverLog:
		return NewLogStore(nil, b.Logger), nil
	case DriverSQL:
		if b.DB == nil {
			return nil, fmt.Errorf("%w: sql driver without a database", ErrUnknownDriver)
		}
		return NewSQLStore(b.DB, cfg.Table), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
