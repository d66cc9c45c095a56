package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/valkyrjaio/valkyrja/pkg/container"
	"github.com/valkyrjaio/valkyrja/pkg/cookie"
	"github.com/valkyrjaio/valkyrja/pkg/health"
	"github.com/valkyrjaio/valkyrja/pkg/logger"
)

// Default server timeouts (hardcoded, opinionated).
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// App orchestrates the application lifecycle.
// It owns routing, middleware, lifecycle hooks, the service container and
// graceful shutdown. App is immutable after creation; configure it via New.
type App struct {
	router                  chi.Router
	handler                 HandlerFunc
	routes                  *RouteCollection
	container               *container.Container
	errorHandler            ErrorHandler
	notFoundHandler         HandlerFunc
	methodNotAllowedHandler HandlerFunc
	healthConfig            *healthConfig
	logger                  *slog.Logger
	cookieManager           *cookie.Manager
	sessionManager          *SessionManager
	sessionSetup            func()
	namedMiddleware         map[string]Middleware
	middlewareGroups        map[string][]string
	hooks                   hooks
	providers               []container.Provider
	middlewares             []Middleware
	handlers                []Handler
	staticRoutes            []staticRoute
}

// staticRoute represents a static file handler mount point.
type staticRoute struct {
	handler http.Handler
	pattern string
}

// ctxKey stores the request's Context in the http.Request context so that
// route handlers reached through chi share it with the global middleware.
type ctxKey struct{}

// New creates a new application with the given options.
//
// Example:
//
//	app := valkyrja.New(
//	    valkyrja.WithMiddleware(middlewares.RequestID()),
//	    valkyrja.WithNamedMiddleware("auth", middlewares.RequireAuth()),
//	    valkyrja.WithHandlers(
//	        handlers.NewAuth(repo),
//	        handlers.NewPages(repo),
//	    ),
//	)
func New(opts ...Option) *App {
	a := &App{
		router:           chi.NewRouter(),
		routes:           newRouteCollection(),
		logger:           logger.NewNope(),
		cookieManager:    cookie.New(),
		namedMiddleware:  make(map[string]Middleware),
		middlewareGroups: make(map[string][]string),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.container == nil {
		a.container = container.New()
	}
	a.container.Instance(container.Key[*App](), a)
	a.container.Instance(container.Key[*slog.Logger](), a.logger)
	a.container.Instance(container.Key[*cookie.Manager](), a.cookieManager)

	if a.sessionSetup != nil {
		a.sessionSetup()
	}
	if a.sessionManager != nil {
		a.sessionManager.SetLogger(a.logger)
		a.container.Instance(container.Key[*SessionManager](), a.sessionManager)
	}

	for _, p := range a.providers {
		if dp, ok := p.(container.DeferredProvider); ok {
			a.container.Defer(dp)
			continue
		}
		if err := a.container.Register(p); err != nil {
			panic(fmt.Sprintf("valkyrja: %v", err))
		}
	}

	a.handler = chain(a.dispatch, a.middlewares)
	a.setupRoutes()
	return a
}

// Routes returns every registered route in registration order.
func (a *App) Routes() []Route {
	return a.routes.All()
}

// Route returns the route registered under name.
func (a *App) Route(name string) (Route, bool) {
	return a.routes.Get(name)
}

// URL builds the path of a named route.
//
//	u, err := app.URL("users.show", map[string]string{"id": "42"})
func (a *App) URL(name string, params map[string]string) (string, error) {
	return a.routes.URL(name, params)
}

// Container returns the application's service container.
func (a *App) Container() *container.Container {
	return a.container
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Boot runs the Boot step of every registered service provider.
func (a *App) Boot(ctx context.Context) error {
	return a.container.Boot(ctx)
}

// Run boots the container, starts the HTTP server and blocks until shutdown.
//
// Example:
//
//	err := app.Run(":8080",
//	    valkyrja.Logger(log),
//	    valkyrja.ShutdownHook(db.Shutdown(pool)),
//	)
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)
	if cfg.logger == nil {
		cfg.logger = a.logger
	}

	return runServer(runtimeConfig{
		handler:         a,
		address:         addr,
		logger:          cfg.logger,
		shutdownTimeout: cfg.shutdownTimeout,
		startupHooks:    append([]func(context.Context) error{a.Boot}, cfg.startupHooks...),
		shutdownHooks:   cfg.shutdownHooks,
		baseCtx:         cfg.baseCtx,
	})
}

// ServeHTTP runs a request through the lifecycle hooks, the global
// middleware and the router.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r, a)
	c.request = r.WithContext(context.WithValue(r.Context(), ctxKey{}, c))
	c.responseWriter.OnBeforeWrite(func() {
		a.hooks.runSending(c)
	})

	defer a.hooks.runTerminated(c)
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			a.handleError(c, &PanicError{Value: v, Stack: debug.Stack()})
		}
		if !c.Written() {
			c.responseWriter.WriteHeader(http.StatusOK)
		}
	}()

	err := a.hooks.runReceived(c)
	if err == nil {
		err = a.handler(c)
	}
	if err != nil {
		a.handleError(c, err)
	}
}

// dispatch hands the request to chi. It is the innermost global handler.
func (a *App) dispatch(c Context) error {
	rc := a.contextOf(c)
	rc.routeErr = nil
	a.router.ServeHTTP(rc.response, rc.request)
	return rc.routeErr
}

// contextOf finds the requestContext behind c, which middleware may have
// wrapped.
func (a *App) contextOf(c Context) *requestContext {
	if rc, ok := c.(*requestContext); ok {
		return rc
	}
	if rc, ok := c.Request().Context().Value(ctxKey{}).(*requestContext); ok {
		return rc
	}
	rc := newContext(c.Response(), c.Request(), a)
	rc.request = c.Request().WithContext(context.WithValue(c.Request().Context(), ctxKey{}, rc))
	return rc
}

// acquire returns the request's Context updated with the request chi matched.
func (a *App) acquire(w http.ResponseWriter, r *http.Request) *requestContext {
	rc, ok := r.Context().Value(ctxKey{}).(*requestContext)
	if !ok {
		// Served without ServeHTTP, e.g. a test calling the chi router.
		rc = newContext(w, r, a)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, rc))
	}
	rc.request = r
	return rc
}

// routeHandler adapts a route's handler chain to chi.
func (a *App) routeHandler(route *Route, h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := a.acquire(w, r)
		c.route = route

		err := a.hooks.runMatched(c, route.clone())
		if err == nil {
			err = h(c)
			a.hooks.runDispatched(c, route.clone(), err)
		}
		c.routeErr = err
	}
}

// setupRoutes configures the router with fallbacks, static files, health
// endpoints and handlers.
func (a *App) setupRoutes() {
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		c := a.acquire(w, r)
		if a.notFoundHandler != nil {
			c.routeErr = a.notFoundHandler(c)
			return
		}
		c.routeErr = ErrNotFound("")
	})
	a.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		c := a.acquire(w, r)
		if a.methodNotAllowedHandler != nil {
			c.routeErr = a.methodNotAllowedHandler(c)
			return
		}
		c.routeErr = ErrMethodNotAllowed("")
	})

	r := &routerAdapter{app: a}

	for _, sr := range a.staticRoutes {
		r.Mount(sr.pattern, sr.handler)
	}

	if a.healthConfig != nil {
		live := health.LivenessHandler()
		ready := health.ReadinessHandler(a.healthConfig.checks, health.WithLogger(a.logger))
		r.GET(a.healthConfig.livenessPath, fromHTTP(live), Name("health.live"))
		r.GET(a.healthConfig.readinessPath, fromHTTP(ready), Name("health.ready"))
	}

	for _, h := range a.handlers {
		h.Routes(r)
	}
}

// fromHTTP adapts an http.Handler to a HandlerFunc.
func fromHTTP(h http.Handler) HandlerFunc {
	return func(c Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// handleError runs the caught hooks, then the error handler. The default
// response is written when there is no error handler or it fails.
func (a *App) handleError(c *requestContext, err error) {
	a.hooks.runCaught(c, err)

	if c.Written() {
		c.LogError("error after response was written", "error", err)
		return
	}
	if a.errorHandler != nil {
		herr := a.errorHandler(c, err)
		if herr == nil {
			return
		}
		c.LogError("error handler failed", "error", herr)
		if c.Written() {
			return
		}
	}
	a.writeError(c, err)
}

type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError renders err as JSON or plain text depending on Accept.
// Errors that are not HTTPErrors are logged and answered with 500.
func (a *App) writeError(c *requestContext, err error) {
	httpErr := AsHTTPError(err)
	if httpErr == nil {
		c.LogError("request failed", "error", err)
		httpErr = ErrInternal("")
	}

	if c.Accepts("text/plain", "text/html", "application/json") == "application/json" {
		_ = c.JSON(httpErr.Code, errorBody{
			Error:     httpErr.Message,
			Detail:    httpErr.Detail,
			Code:      httpErr.ErrorCode,
			RequestID: httpErr.RequestID,
		})
		return
	}
	http.Error(c.response, httpErr.Message, httpErr.Code)
}

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        health.Checks
	livenessPath  string
	readinessPath string
}

// Default health check paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during the readiness check.
//
//	valkyrja.WithReadinessCheck("db", orm.Healthcheck(db))
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if c.checks == nil {
			c.checks = make(health.Checks)
		}
		c.checks[name] = fn
	}
}
