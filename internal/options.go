package internal

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/valkyrjaio/valkyrja/pkg/container"
	"github.com/valkyrjaio/valkyrja/pkg/cookie"
	"github.com/valkyrjaio/valkyrja/pkg/logger"
	"github.com/valkyrjaio/valkyrja/pkg/session"
)

// Option configures the application.
type Option func(*App)

// WithMiddleware adds global middleware to the application.
// Global middleware runs for every request, unmatched ones included, in
// the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mw...)
	}
}

// WithNamedMiddleware registers middleware that routes reference by name
// through UseNamed.
//
//	valkyrja.WithNamedMiddleware("auth", middlewares.RequireAuth())
func WithNamedMiddleware(name string, mw Middleware) Option {
	return func(a *App) {
		if name == "" || mw == nil {
			panic("valkyrja: named middleware needs a name and a function")
		}
		a.namedMiddleware[name] = mw
	}
}

// WithMiddlewareGroup registers a name standing for several named
// middleware or other groups, expanded in order.
//
//	valkyrja.WithMiddlewareGroup("web", "session", "csrf")
func WithMiddlewareGroup(name string, members ...string) Option {
	return func(a *App) {
		if name == "" {
			panic("valkyrja: middleware group needs a name")
		}
		a.middlewareGroups[name] = append([]string(nil), members...)
	}
}

// WithHandlers registers handlers that declare routes.
// Each handler's Routes method is called during setup.
func WithHandlers(h ...Handler) Option {
	return func(a *App) {
		a.handlers = append(a.handlers, h...)
	}
}

// WithStaticFiles serves subDir of fsys under pattern.
// Directory listings are disabled. Files are served with default cache headers.
//
// Example:
//
//	//go:embed public
//	var assets embed.FS
//
//	valkyrja.New(
//	    valkyrja.WithStaticFiles("/static", assets, "public"),
//	)
func WithStaticFiles(pattern string, fsys fs.FS, subDir string) Option {
	return func(a *App) {
		subFS, err := fs.Sub(fsys, subDir)
		if err != nil {
			panic(fmt.Sprintf("valkyrja: static files %q: %v", subDir, err))
		}

		prefix := strings.TrimRight(pattern, "/")
		fileServer := http.StripPrefix(prefix, http.FileServerFS(subFS))

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}

			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Header().Set("X-Content-Type-Options", "nosniff")

			fileServer.ServeHTTP(w, r)
		})

		a.staticRoutes = append(a.staticRoutes, staticRoute{handler, prefix})
	}
}

// WithErrorHandler sets a custom error handler for handler errors.
// When it returns an error the default error response is written.
//
// Example:
//
//	valkyrja.WithErrorHandler(func(c valkyrja.Context, err error) error {
//	    if httpErr := valkyrja.AsHTTPError(err); httpErr != nil {
//	        return c.Render(httpErr.Code, views.Error(httpErr))
//	    }
//	    return err
//	})
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *App) {
		a.errorHandler = h
	}
}

// WithNotFoundHandler sets a custom 404 handler.
func WithNotFoundHandler(h HandlerFunc) Option {
	return func(a *App) {
		a.notFoundHandler = h
	}
}

// WithMethodNotAllowedHandler sets a custom 405 handler.
func WithMethodNotAllowedHandler(h HandlerFunc) Option {
	return func(a *App) {
		a.methodNotAllowedHandler = h
	}
}

// WithHealthChecks enables health check endpoints, registered as the
// routes "health.live" and "health.ready".
// Liveness always returns OK while the process runs; readiness runs every
// configured check.
//
// Example:
//
//	valkyrja.WithHealthChecks(
//	    valkyrja.WithReadinessCheck("db", orm.Healthcheck(db)),
//	    valkyrja.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		cfg := &healthConfig{
			livenessPath:  defaultLivenessPath,
			readinessPath: defaultReadinessPath,
		}
		for _, opt := range opts {
			opt(cfg)
		}
		a.healthConfig = cfg
	}
}

// WithLogger creates a logger with a component name and optional extractors.
// Extractors pull values from context (e.g., request_id, user_id).
//
//	valkyrja.WithLogger("api", middlewares.RequestIDExtractor())
func WithLogger(component string, extractors ...logger.ContextExtractor) Option {
	return func(a *App) {
		a.logger = logger.New(extractors...).With("component", component)
	}
}

// WithCustomLogger sets a fully custom logger.
func WithCustomLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCookieOptions configures the cookie manager.
//
//	valkyrja.WithCookieOptions(cookie.WithSecret(os.Getenv("APP_KEY")))
func WithCookieOptions(opts ...cookie.Option) Option {
	return func(a *App) {
		a.cookieManager = cookie.New(opts...)
	}
}

// WithSession enables session management on top of store.
// Sessions are loaded lazily and saved automatically before the response is written.
//
//	valkyrja.WithSession(session.NewMemoryStore(),
//	    valkyrja.WithSessionCookieName("__sid"),
//	    valkyrja.WithSessionSecure(true),
//	)
func WithSession(store session.Store, opts ...SessionOption) Option {
	return func(a *App) {
		a.sessionManager = NewSessionManager(store, opts...)
	}
}

// WithSessionConfig opens the store selected by cfg.Driver and configures
// the session cookie from cfg. The cookie driver encrypts with the app's
// cookie manager unless b.Cipher is set. An unusable configuration panics.
func WithSessionConfig(cfg session.Config, b session.Backends) Option {
	return func(a *App) {
		a.sessionSetup = func() {
			if b.Cipher == nil {
				b.Cipher = a.cookieManager
			}
			if b.Logger == nil {
				b.Logger = a.logger
			}
			store, err := session.Open(cfg, b)
			if err != nil {
				panic(fmt.Sprintf("valkyrja: session: %v", err))
			}
			a.sessionManager = NewSessionManager(store, SessionConfigOptions(cfg)...)
		}
	}
}

// WithContainer uses c as the application's service container.
func WithContainer(c *container.Container) Option {
	return func(a *App) {
		if c != nil {
			a.container = c
		}
	}
}

// WithProviders registers service providers on the application container.
// Deferred providers register on first use; the others at once. A failing
// provider panics.
func WithProviders(providers ...container.Provider) Option {
	return func(a *App) {
		a.providers = append(a.providers, providers...)
	}
}
