// Command valkyrja runs a small notes service on the Valkyrja kernel. It
// shows the full wiring: configuration, logging, database, cache, sessions,
// service providers, middleware and the console.
//
//	valkyrja serve --addr :8080
//	valkyrja routes
//	valkyrja migrate status
//	CONFIG_FILE=config.yaml valkyrja config
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/valkyrjaio/valkyrja"
	"github.com/valkyrjaio/valkyrja/console"
	"github.com/valkyrjaio/valkyrja/middlewares"
	"github.com/valkyrjaio/valkyrja/pkg/cache"
	"github.com/valkyrjaio/valkyrja/pkg/config"
	"github.com/valkyrjaio/valkyrja/pkg/container"
	"github.com/valkyrjaio/valkyrja/pkg/cookie"
	"github.com/valkyrjaio/valkyrja/pkg/db"
	"github.com/valkyrjaio/valkyrja/pkg/logger"
	"github.com/valkyrjaio/valkyrja/pkg/orm"
	"github.com/valkyrjaio/valkyrja/pkg/redis"
	"github.com/valkyrjaio/valkyrja/pkg/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cfg Config
	if err := config.Load(os.Getenv("CONFIG_FILE"), &cfg); err != nil {
		return err
	}

	log := logger.NewWithConfig(cfg.Log, middlewares.RequestIDExtractor(), valkyrja.RouteExtractor())

	database, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	var rdb goredis.UniversalClient
	if cfg.Redis.URL != "" {
		if rdb, err = redis.Open(ctx, cfg.Redis.URL, cfg.Redis.Options()...); err != nil {
			return err
		}
	}

	sessionCache, err := cache.Open[[]byte](cfg.Cache, rdb, log)
	if err != nil {
		return err
	}
	statsCache, err := cache.Open[int64](cfg.Cache, rdb, log)
	if err != nil {
		return err
	}

	store, err := session.Open(cfg.Session, session.Backends{
		Cache:  sessionCache,
		Cipher: cookie.New(cookie.WithSecret(cfg.App.Secret)),
		DB:     database,
		Logger: log,
	})
	if err != nil {
		return err
	}

	app := newApp(cfg, log, database, store, statsCache, rdb)

	runOpts := []valkyrja.RunOption{
		valkyrja.Logger(log),
		valkyrja.StartupHook(func(ctx context.Context) error {
			if err := orm.Migrate(ctx, database, migrations, migrationsDir); err != nil {
				return err
			}
			if st, ok := store.(*session.SQLStore); ok {
				return st.CreateTable(ctx)
			}
			return nil
		}),
	}

	janitor, err := sessionJanitor(cfg.Session, store, log)
	if err != nil {
		return err
	}
	if janitor != nil {
		runOpts = append(runOpts,
			valkyrja.StartupHook(janitor.Start),
			valkyrja.ShutdownHook(janitor.Stop),
		)
	}

	runOpts = append(runOpts,
		valkyrja.ShutdownHook(closer(store)),
		valkyrja.ShutdownHook(closer(sessionCache)),
		valkyrja.ShutdownHook(closer(statsCache)),
		valkyrja.ShutdownHook(orm.Shutdown(database)),
	)
	if rdb != nil {
		runOpts = append(runOpts, valkyrja.ShutdownHook(redis.Shutdown(rdb)))
	}

	root := console.New(app,
		console.WithName(cfg.App.Name),
		console.WithVersion(version),
		console.WithAddress(cfg.App.Address),
		console.WithDB(database),
		console.WithMigrations(migrations, migrationsDir),
		console.WithConfig(&cfg),
		console.WithRunOptions(runOpts...),
	)
	if len(args) == 0 {
		args = []string{"serve"}
	}
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// openDatabase shares a pgx pool when a Postgres URL is configured and
// falls back to the database/sql drivers otherwise.
func openDatabase(ctx context.Context, cfg Config, log *slog.Logger) (*orm.DB, error) {
	if cfg.Postgres.ConnectionString == "" {
		return orm.Open(ctx, cfg.DB, orm.WithLogger(log))
	}
	pool, err := db.Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	return orm.FromPool(pool, orm.WithLogger(log)), nil
}

func newApp(cfg Config, log *slog.Logger, database *orm.DB, store session.Store, stats cache.Cache[int64], rdb goredis.UniversalClient) *valkyrja.App {
	checks := []valkyrja.HealthOption{
		valkyrja.WithReadinessCheck("db", orm.Healthcheck(database)),
	}
	if rdb != nil {
		checks = append(checks, valkyrja.WithReadinessCheck("redis", redis.Healthcheck(rdb)))
	}

	return valkyrja.New(
		valkyrja.WithCustomLogger(log),
		valkyrja.WithCookieOptions(
			valkyrja.WithCookieSecret(cfg.App.Secret),
			valkyrja.WithCookieSecure(cfg.Session.Secure),
		),
		valkyrja.WithSession(store, valkyrja.SessionConfigOptions(cfg.Session)...),
		valkyrja.WithProviders(
			dbProvider{db: database},
			notesProvider{db: database},
			container.ProviderFunc(func(c *container.Container) error {
				c.Instance(statsService, stats)
				return nil
			}),
		),
		valkyrja.WithMiddleware(
			middlewares.RequestID(),
			middlewares.Recover(),
			middlewares.SecureHeaders(),
			middlewares.CORS(middlewares.WithCORSConfig(cfg.CORS)),
		),
		valkyrja.WithNamedMiddleware("timeout", middlewares.Timeout(cfg.App.Timeout)),
		valkyrja.WithNamedMiddleware("auth", middlewares.RequireAuth()),
		valkyrja.WithMiddlewareGroup("api", "timeout"),
		valkyrja.WithHealthChecks(checks...),
		valkyrja.WithHandlers(notesHandler{}),
		valkyrja.OnTerminated(func(c valkyrja.Context) {
			c.LogInfo("request served",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.Int("status", c.ResponseWriter().Status()),
			)
		}),
	)
}

// sessionJanitor schedules pruning for stores that keep expired rows. It
// returns nil when the store needs none or the schedule is empty.
func sessionJanitor(cfg session.Config, store session.Store, log *slog.Logger) (*session.Janitor, error) {
	p, ok := store.(session.Pruner)
	if !ok || cfg.PruneSchedule == "" {
		return nil, nil
	}
	return session.NewJanitor(p, cfg.PruneSchedule, log)
}

// closer adapts stores and caches that hold resources to a shutdown hook.
func closer(v any) func(context.Context) error {
	return func(context.Context) error {
		if c, ok := v.(io.Closer); ok {
			if err := c.Close(); err != nil && !errors.Is(err, cache.ErrClosed) {
				return err
			}
		}
		return nil
	}
}
