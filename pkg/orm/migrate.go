package orm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"
)

// goose keeps its dialect, filesystem and logger in package state.
var gooseMu sync.Mutex

// Migrator applies goose migrations from a filesystem.
type Migrator struct {
	db     *DB
	fsys   fs.FS
	dir    string
	table  string
	logger *slog.Logger
}

// MigratorOption configures a Migrator.
type MigratorOption func(*Migrator)

// WithMigrationsDir sets the directory inside the filesystem. Default: ".".
func WithMigrationsDir(dir string) MigratorOption {
	return func(m *Migrator) { m.dir = dir }
}

// WithMigrationsTable sets the version table. Default: goose_db_version.
func WithMigrationsTable(table string) MigratorOption {
	return func(m *Migrator) { m.table = table }
}

// WithMigrationLogger receives goose output at info level.
func WithMigrationLogger(l *slog.Logger) MigratorOption {
	return func(m *Migrator) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMigrator creates a migrator for db reading SQL files from fsys
// (typically an embed.FS).
func NewMigrator(db *DB, fsys fs.FS, opts ...MigratorOption) *Migrator {
	m := &Migrator{
		db:     db,
		fsys:   fsys,
		dir:    ".",
		table:  "goose_db_version",
		logger: db.logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Migrate applies every pending migration in dir.
func Migrate(ctx context.Context, db *DB, fsys fs.FS, dir string) error {
	return NewMigrator(db, fsys, WithMigrationsDir(dir)).Up(ctx)
}

func (m *Migrator) run(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(m.fsys)
	goose.SetLogger(&gooseLogger{log: m.logger})
	goose.SetTableName(m.table)
	if err := goose.SetDialect(m.db.dialect.Goose()); err != nil {
		return errors.Join(ErrMigration, fmt.Errorf("set dialect: %w", err))
	}
	if err := fn(); err != nil {
		return errors.Join(ErrMigration, err)
	}
	return nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(func() error { return goose.UpContext(ctx, m.db.sql, m.dir) })
}

// Down rolls back the latest migration.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(func() error { return goose.DownContext(ctx, m.db.sql, m.dir) })
}

// Status logs the state of every migration.
func (m *Migrator) Status(ctx context.Context) error {
	return m.run(func() error { return goose.StatusContext(ctx, m.db.sql, m.dir) })
}

// Version returns the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var v int64
	err := m.run(func() error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, m.db.sql)
		return err
	})
	return v, err
}

type gooseLogger struct {
	log *slog.Logger
}

func (g *gooseLogger) Printf(format string, args ...any) {
	g.log.Info(fmt.Sprintf(format, args...))
}

// Fatalf only logs; goose returns the error to the caller as well.
func (g *gooseLogger) Fatalf(format string, args ...any) {
	g.log.Error(fmt.Sprintf(format, args...))
}
