package redis

import "time"

// Config describes a Redis connection. Zero fields keep the defaults.
type Config struct {
	URL          string        `yaml:"url" toml:"url" env:"REDIS_URL"`
	PoolSize     int           `yaml:"pool_size" toml:"pool_size" env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" toml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" envDefault:"5"`
	DialTimeout  time.Duration `yaml:"dial_timeout" toml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	Retries      int           `yaml:"retries" toml:"retries" env:"REDIS_RETRIES" envDefault:"3"`
}

// Options converts the config into connection options.
func (c Config) Options() []Option {
	var opts []Option
	if c.PoolSize > 0 {
		opts = append(opts, WithPoolSize(c.PoolSize))
	}
	if c.MinIdleConns > 0 {
		opts = append(opts, WithMinIdleConns(c.MinIdleConns))
	}
	if c.DialTimeout > 0 {
		opts = append(opts, WithDialTimeout(c.DialTimeout))
	}
	if c.Retries > 0 {
		opts = append(opts, WithRetry(c.Retries, time.Second))
	}
	return opts
}

// Option configures a Redis connection.
type Option func(*options)

type options struct {
	poolSize      int
	minIdleConns  int
	maxIdleTime   time.Duration
	maxActiveTime time.Duration
	retryAttempts int
	retryInterval time.Duration
	readTimeout   time.Duration
	writeTimeout  time.Duration
	dialTimeout   time.Duration
}

func defaultOptions() *options {
	return &options{
		poolSize:      10,
		minIdleConns:  5,
		maxIdleTime:   10 * time.Minute,
		maxActiveTime: 30 * time.Minute,
		retryAttempts: 3,
		retryInterval: time.Second,
		readTimeout:   3 * time.Second,
		writeTimeout:  3 * time.Second,
		dialTimeout:   5 * time.Second,
	}
}

// WithPoolSize sets the maximum number of pooled connections. Default: 10.
func WithPoolSize(n int) Option {
	return func(o *options) { o.poolSize = n }
}

// WithMinIdleConns sets how many idle connections stay open. Default: 5.
func WithMinIdleConns(n int) Option {
	return func(o *options) { o.minIdleConns = n }
}

// WithMaxIdleTime closes connections idle for longer than d. Default: 10m.
func WithMaxIdleTime(d time.Duration) Option {
	return func(o *options) { o.maxIdleTime = d }
}

// WithMaxActiveTime bounds a connection's lifetime. Default: 30m.
func WithMaxActiveTime(d time.Duration) Option {
	return func(o *options) { o.maxActiveTime = d }
}

// WithRetry sets the startup ping attempts and the base backoff delay.
// Default: 3 attempts starting at 1s.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(o *options) {
		o.retryAttempts = attempts
		o.retryInterval = interval
	}
}

// WithReadTimeout sets the read timeout. Default: 3s.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) { o.readTimeout = d }
}

// WithWriteTimeout sets the write timeout. Default: 3s.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// WithDialTimeout sets the dial timeout. Default: 5s.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}
