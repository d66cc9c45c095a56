package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/proullon/ramsql/driver"
	_ "modernc.org/sqlite"
)

// Config selects a driver and tunes the connection pool.
//
// Drivers: "pgx" (pgx/v5 stdlib), "postgres" (lib/pq), "sqlite" (modernc,
// pure Go) and "memory" (ramsql, in-process, for tests and demos).
type Config struct {
	Driver          string        `yaml:"driver" toml:"driver" env:"DB_DRIVER" envDefault:"sqlite"`
	DSN             string        `yaml:"dsn" toml:"dsn" env:"DB_DSN" envDefault:"file:valkyrja.db?_pragma=foreign_keys(1)"`
	MaxOpenConns    int           `yaml:"max_open_conns" toml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" toml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" toml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	RetryAttempts   int           `yaml:"retry_attempts" toml:"retry_attempts" env:"DB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `yaml:"retry_interval" toml:"retry_interval" env:"DB_RETRY_INTERVAL" envDefault:"1s"`
}

// executor is satisfied by *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB executes queries built by this package against a database/sql handle.
type DB struct {
	sql     *sql.DB
	conn    executor
	dialect Dialect
	logger  *slog.Logger
	inTx    bool
}

// Option configures a DB.
type Option func(*DB)

// WithLogger logs every statement at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) {
		if l != nil {
			db.logger = l
		}
	}
}

// WithDialect overrides the dialect derived from the driver.
func WithDialect(d Dialect) Option {
	return func(db *DB) {
		if d != nil {
			db.dialect = d
		}
	}
}

// New wraps an open *sql.DB.
func New(sqlDB *sql.DB, d Dialect, opts ...Option) *DB {
	db := &DB{
		sql:     sqlDB,
		conn:    sqlDB,
		dialect: d,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.dialect == nil {
		db.dialect = Postgres
	}
	return db
}

// Open connects with cfg.Driver and pings the database, retrying with
// exponential backoff.
func Open(ctx context.Context, cfg Config, opts ...Option) (*DB, error) {
	driver := cfg.Driver
	switch driver {
	case "memory":
		driver = "ramsql"
	case "postgresql":
		driver = "postgres"
	}
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := retry.DoWithData(
		func() (*sql.DB, error) {
			sqlDB, err := sql.Open(driver, cfg.DSN)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				_ = sqlDB.Close()
				return nil, err
			}
			return sqlDB, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(max(cfg.RetryAttempts, 1))),
		retry.Delay(max(cfg.RetryInterval, 10*time.Millisecond)),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return New(sqlDB, d, opts...), nil
}

// FromPool shares a pgx pool (see pkg/db) through database/sql.
// Closing the returned DB does not close the pool.
func FromPool(pool *pgxpool.Pool, opts ...Option) *DB {
	return New(stdlib.OpenDBFromPool(pool), Postgres, opts...)
}

// Dialect returns the SQL dialect in use.
func (db *DB) Dialect() Dialect { return db.dialect }

// SQL returns the underlying handle.
func (db *DB) SQL() *sql.DB { return db.sql }

func (db *DB) render(q Query) (string, []any, error) {
	if b, ok := q.(bindable); ok {
		q = b.bind(db.dialect)
	}
	return q.ToSQL()
}

func (db *DB) log(ctx context.Context, query string, args []any, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("sql", query),
		slog.Int("args", len(args)),
		slog.Duration("took", time.Since(start)),
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "orm query", attrs...)
}

// Exec runs a statement that returns no rows.
func (db *DB) Exec(ctx context.Context, q Query) (sql.Result, error) {
	query, args, err := db.render(q)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, args...)
	db.log(ctx, query, args, start, err)
	return res, err
}

// Query runs q and returns the raw rows. The caller closes them.
func (db *DB) Query(ctx context.Context, q Query) (*sql.Rows, error) {
	query, args, err := db.render(q)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	db.log(ctx, query, args, start, err)
	return rows, err
}

// QueryRow runs q and returns a single row. Build errors surface from Scan.
func (db *DB) QueryRow(ctx context.Context, q Query) (*sql.Row, error) {
	query, args, err := db.render(q)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, query, args...)
	db.log(ctx, query, args, start, row.Err())
	return row, nil
}

// Get scans the first row of q into dst, a pointer to a struct or scalar.
// No rows yields ErrNotFound.
func (db *DB) Get(ctx context.Context, dst any, q Query) error {
	out, err := destination(dst)
	if err != nil {
		return err
	}
	rows, err := db.Query(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrNotFound
	}
	if err := scanRow(rows, out); err != nil {
		return err
	}
	return rows.Close()
}

// Select scans every row of q into dst, a pointer to a slice of structs,
// struct pointers or scalars. The slice is reset first.
func (db *DB) Select(ctx context.Context, dst any, q Query) error {
	out, err := destination(dst)
	if err != nil {
		return err
	}
	if out.Kind() != reflect.Slice {
		return fmt.Errorf("%w: want pointer to slice, got %T", ErrInvalidDestination, dst)
	}

	elem := out.Type().Elem()
	ptr := elem.Kind() == reflect.Pointer
	if ptr {
		elem = elem.Elem()
	}

	rows, err := db.Query(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	out.Set(reflect.MakeSlice(out.Type(), 0, 0))
	for rows.Next() {
		item := reflect.New(elem)
		if err := scanRow(rows, item.Elem()); err != nil {
			return err
		}
		if ptr {
			out.Set(reflect.Append(out, item))
		} else {
			out.Set(reflect.Append(out, item.Elem()))
		}
	}
	return rows.Err()
}

// WithTx runs fn inside a transaction. fn receives a DB bound to the
// transaction; an error or panic rolls back (panics are re-raised),
// otherwise the transaction commits. Nested calls reuse the outer transaction.
func (db *DB) WithTx(ctx context.Context, fn func(tx *DB) error) error {
	if db.inTx {
		return fn(db)
	}

	sqlTx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	tx := *db
	tx.conn = sqlTx
	tx.inTx = true

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return sqlTx.Commit()
}

// Ping verifies the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// Close closes the underlying handle.
func (db *DB) Close() error {
	return db.sql.Close()
}

// Healthcheck returns a readiness check pinging db.
func Healthcheck(db *DB) func(context.Context) error {
	return func(ctx context.Context) error {
		if db == nil {
			return ErrHealthcheckFailed
		}
		if err := db.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Shutdown returns a hook closing db, for valkyrja.ShutdownHook.
func Shutdown(db *DB) func(context.Context) error {
	return func(context.Context) error {
		return db.Close()
	}
}
