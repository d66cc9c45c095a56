package valkyrja

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/valkyrjaio/valkyrja/internal"
	"github.com/valkyrjaio/valkyrja/pkg/container"
	"github.com/valkyrjaio/valkyrja/pkg/cookie"
	"github.com/valkyrjaio/valkyrja/pkg/health"
	"github.com/valkyrjaio/valkyrja/pkg/logger"
	"github.com/valkyrjaio/valkyrja/pkg/session"
)

// Type aliases for public API.
type (
	// App orchestrates the HTTP kernel: routing, middleware, hooks,
	// the service container and the server lifecycle.
	App = internal.App

	// Router defines the interface for registering routes and groups.
	Router = internal.Router

	// Route is the metadata of a registered route.
	Route = internal.Route

	// RouteOption configures a route or every route in a group.
	RouteOption = internal.RouteOption

	// Context provides request/response access and helper methods.
	// It embeds context.Context.
	Context = internal.Context

	// Handler declares routes on a Router.
	Handler = internal.Handler

	// HandlerFunc handles a request.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps a HandlerFunc.
	Middleware = internal.Middleware

	// ErrorHandler renders errors returned by handlers.
	ErrorHandler = internal.ErrorHandler

	// Option configures the App.
	Option = internal.Option

	// RunOption configures Run behavior.
	RunOption = internal.RunOption

	// Component renders HTML, compatible with templ.Component.
	Component = internal.Component

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// ContextExtractor extracts a slog attribute from a request context.
	ContextExtractor = logger.ContextExtractor

	// Extractor tries a list of sources in order and returns the first value.
	Extractor = internal.Extractor

	// ExtractorSource reads a value from the request.
	ExtractorSource = internal.ExtractorSource

	// ResponseWriter tracks the status and size of a response.
	ResponseWriter = internal.ResponseWriter

	// CookieOption configures the cookie manager.
	CookieOption = cookie.Option

	// Session is a server-side session.
	Session = session.Session

	// SessionStore persists sessions.
	SessionStore = session.Store

	// SessionConfig is the declarative session configuration.
	SessionConfig = session.Config

	// SessionBackends provides the connections session drivers need.
	SessionBackends = session.Backends

	// SessionOption configures the session manager.
	SessionOption = internal.SessionOption

	// Container is the service container.
	Container = container.Container

	// Provider registers services in the container.
	Provider = container.Provider
)

// New creates a new App with the given options.
//
// Example:
//
//	app := valkyrja.New(
//	    valkyrja.WithCustomLogger(log),
//	    valkyrja.WithNamedMiddleware("auth", middlewares.RequireAuth()),
//	    valkyrja.WithSession(store),
//	    valkyrja.WithHandlers(users.NewHandler(repo)),
//	)
//	return app.Run(":8080")
func New(opts ...Option) *App {
	return internal.New(opts...)
}

// WithMiddleware adds global middleware. It runs for every request,
// including unmatched ones.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithNamedMiddleware registers middleware under a name for UseNamed.
func WithNamedMiddleware(name string, mw Middleware) Option {
	return internal.WithNamedMiddleware(name, mw)
}

// WithMiddlewareGroup registers a named group of middleware names.
// Groups may reference other groups.
//
// Example:
//
//	valkyrja.WithMiddlewareGroup("web", "session", "csrf")
func WithMiddlewareGroup(name string, members ...string) Option {
	return internal.WithMiddlewareGroup(name, members...)
}

// WithHandlers registers handlers that declare routes.
func WithHandlers(h ...Handler) Option {
	return internal.WithHandlers(h...)
}

// WithStaticFiles serves files from fsys under pattern.
//
// Example:
//
//	//go:embed static
//	var staticFS embed.FS
//
//	valkyrja.WithStaticFiles("/static/", staticFS, "static")
func WithStaticFiles(pattern string, fsys fs.FS, subDir string) Option {
	return internal.WithStaticFiles(pattern, fsys, subDir)
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithNotFoundHandler sets the handler for unmatched paths.
func WithNotFoundHandler(h HandlerFunc) Option {
	return internal.WithNotFoundHandler(h)
}

// WithMethodNotAllowedHandler sets the handler for unsupported methods.
func WithMethodNotAllowedHandler(h HandlerFunc) Option {
	return internal.WithMethodNotAllowedHandler(h)
}

// WithHealthChecks enables liveness and readiness endpoints.
//
// Example:
//
//	valkyrja.WithHealthChecks(
//	    valkyrja.WithReadinessCheck("db", db.Healthcheck(pool)),
//	    valkyrja.WithReadinessCheck("redis", redis.Healthcheck(rdb)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithLivenessPath sets a custom liveness endpoint path.
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets a custom readiness endpoint path.
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// WithLogger builds a JSON logger tagged with component.
func WithLogger(component string, extractors ...ContextExtractor) Option {
	return internal.WithLogger(component, extractors...)
}

// RouteExtractor adds the matched route's name (or path pattern) to log
// records as "route".
//
//	log := logger.New(middlewares.RequestIDExtractor(), valkyrja.RouteExtractor())
func RouteExtractor() ContextExtractor {
	return internal.RouteExtractor()
}

// WithCustomLogger sets a fully configured logger.
func WithCustomLogger(l *slog.Logger) Option {
	return internal.WithCustomLogger(l)
}

// WithCookieOptions configures the cookie manager.
func WithCookieOptions(opts ...CookieOption) Option {
	return internal.WithCookieOptions(opts...)
}

// WithSession enables sessions backed by store.
func WithSession(store SessionStore, opts ...SessionOption) Option {
	return internal.WithSession(store, opts...)
}

// WithSessionConfig opens the store named by cfg.Driver and enables sessions.
// It panics when the driver cannot be opened.
func WithSessionConfig(cfg SessionConfig, b SessionBackends) Option {
	return internal.WithSessionConfig(cfg, b)
}

// WithContainer uses c instead of a fresh container.
func WithContainer(c *Container) Option {
	return internal.WithContainer(c)
}

// WithProviders registers service providers. Providers that declare
// Provides are deferred until one of their services is resolved.
func WithProviders(providers ...Provider) Option {
	return internal.WithProviders(providers...)
}

// OnRequestReceived registers a hook that runs before routing.
// A returned error short-circuits the request.
func OnRequestReceived(fn func(c Context) error) Option {
	return internal.OnRequestReceived(fn)
}

// OnRouteMatched registers a hook that runs once a route is matched,
// before its middleware. A returned error short-circuits the request.
func OnRouteMatched(fn func(c Context, r Route) error) Option {
	return internal.OnRouteMatched(fn)
}

// OnRouteDispatched registers a hook that runs after the route handler.
func OnRouteDispatched(fn func(c Context, r Route, err error)) Option {
	return internal.OnRouteDispatched(fn)
}

// OnSendingResponse registers a hook that runs right before the
// response headers are written.
func OnSendingResponse(fn func(c Context)) Option {
	return internal.OnSendingResponse(fn)
}

// OnTerminated registers a hook that runs after the response is sent.
func OnTerminated(fn func(c Context)) Option {
	return internal.OnTerminated(fn)
}

// OnThrowableCaught registers a hook that sees every error and panic
// before the error handler.
func OnThrowableCaught(fn func(c Context, err error)) Option {
	return internal.OnThrowableCaught(fn)
}

// Name names a route. On a group it prefixes the names of routes inside.
func Name(name string) RouteOption {
	return internal.Name(name)
}

// Use attaches middleware to a route or group.
func Use(mw ...Middleware) RouteOption {
	return internal.Use(mw...)
}

// UseNamed attaches named middleware or middleware groups.
func UseNamed(names ...string) RouteOption {
	return internal.UseNamed(names...)
}

// Where constrains a path parameter with a regular expression.
func Where(param, pattern string) RouteOption {
	return internal.Where(param, pattern)
}

// Secure redirects plain HTTP requests for the route to HTTPS.
func Secure() RouteOption {
	return internal.Secure()
}

// Logger sets the logger used by Run.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the graceful shutdown timeout. Default is 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook registers a function that runs after providers boot and
// before the server listens.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook registers a cleanup function that runs after the server stops.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets a parent context; cancelling it stops the server.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// NewResponseWriter wraps w to track status and size.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return internal.NewResponseWriter(w)
}

// ContextValue returns a typed value stored with Context.Set.
//
// Example:
//
//	user := valkyrja.ContextValue[*User](c, userKey{})
func ContextValue[T any](c Context, key any) T {
	return internal.ContextValue[T](c, key)
}

// Service resolves a typed service from the app container.
//
// Example:
//
//	repo, err := valkyrja.Service[*UserRepo](c, "users")
func Service[T any](c Context, id string) (T, error) {
	return internal.Service[T](c, id)
}

// Param returns a typed path parameter, zero value on parse failure.
//
// Example:
//
//	id := valkyrja.Param[int64](c, "id")
func Param[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	return internal.Param[T](c, name)
}

// Query returns a typed query parameter, zero value on parse failure.
func Query[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	return internal.Query[T](c, name)
}

// QueryDefault returns a typed query parameter or defaultValue.
func QueryDefault[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string, defaultValue T) T {
	return internal.QueryDefault(c, name, defaultValue)
}

// NewExtractor builds an Extractor from sources tried in order.
//
// Example:
//
//	tenant := valkyrja.NewExtractor(
//	    valkyrja.FromHeader("X-Tenant"),
//	    valkyrja.FromQuery("tenant"),
//	)
func NewExtractor(sources ...ExtractorSource) Extractor {
	return internal.NewExtractor(sources...)
}

// FromHeader reads a request header.
func FromHeader(name string) ExtractorSource { return internal.FromHeader(name) }

// FromQuery reads a query parameter.
func FromQuery(name string) ExtractorSource { return internal.FromQuery(name) }

// FromParam reads a path parameter.
func FromParam(name string) ExtractorSource { return internal.FromParam(name) }

// FromForm reads a form value.
func FromForm(name string) ExtractorSource { return internal.FromForm(name) }

// FromCookie reads a plain cookie.
func FromCookie(name string) ExtractorSource { return internal.FromCookie(name) }

// FromCookieSigned reads a signed cookie.
func FromCookieSigned(name string) ExtractorSource { return internal.FromCookieSigned(name) }

// FromCookieEncrypted reads an encrypted cookie.
func FromCookieEncrypted(name string) ExtractorSource { return internal.FromCookieEncrypted(name) }

// FromSession reads a string session value.
func FromSession(key string) ExtractorSource { return internal.FromSession(key) }

// FromBearerToken reads the token of an "Authorization: Bearer" header.
func FromBearerToken() ExtractorSource { return internal.FromBearerToken() }
