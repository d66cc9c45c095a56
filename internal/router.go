package internal

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Router is the interface handlers use to declare routes.
// Options passed to Group, Route and With apply to every route declared
// inside: paths get the prefix, names get the name prefix and group
// middleware runs before route middleware.
type Router interface {
	// GET registers a handler for GET requests.
	GET(path string, h HandlerFunc, opts ...RouteOption)

	// POST registers a handler for POST requests.
	POST(path string, h HandlerFunc, opts ...RouteOption)

	// PUT registers a handler for PUT requests.
	PUT(path string, h HandlerFunc, opts ...RouteOption)

	// PATCH registers a handler for PATCH requests.
	PATCH(path string, h HandlerFunc, opts ...RouteOption)

	// DELETE registers a handler for DELETE requests.
	DELETE(path string, h HandlerFunc, opts ...RouteOption)

	// HEAD registers a handler for HEAD requests.
	HEAD(path string, h HandlerFunc, opts ...RouteOption)

	// OPTIONS registers a handler for OPTIONS requests.
	OPTIONS(path string, h HandlerFunc, opts ...RouteOption)

	// Any registers a handler for every standard method.
	Any(path string, h HandlerFunc, opts ...RouteOption)

	// Match registers a handler for the given methods.
	Match(methods []string, path string, h HandlerFunc, opts ...RouteOption)

	// Redirect answers GET and HEAD requests on from with a redirect to to.
	// A zero code means 302.
	Redirect(from, to string, code int, opts ...RouteOption)

	// Group creates an inline route group sharing opts.
	Group(fn func(r Router), opts ...RouteOption)

	// Route creates a route group under a path prefix.
	Route(prefix string, fn func(r Router), opts ...RouteOption)

	// With returns a router whose routes share opts.
	With(opts ...RouteOption) Router

	// Prefix returns a router whose paths start with prefix.
	Prefix(prefix string) Router

	// Name returns a router whose route names start with prefix.
	Name(prefix string) Router

	// Use appends middleware for routes declared after the call.
	Use(mw ...Middleware)

	// Mount attaches an http.Handler at the given pattern.
	// Use this for legacy handlers or third-party routers.
	Mount(pattern string, h http.Handler)
}

var standardMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// routerAdapter registers routes on the app's chi router, carrying the
// prefix and options of the enclosing groups.
type routerAdapter struct {
	app    *App
	prefix string
	spec   routeSpec
}

func (r *routerAdapter) GET(path string, h HandlerFunc, opts ...RouteOption) {
	r.handle([]string{http.MethodGet}, path, h, opts)
}

func (r *routerAdapter) POST(path string, h HandlerFunc, opts ...RouteOption) {
	r.handle([]string{http.MethodPost}, path, h, opts)
}

func (r *routerAdapter) PUT(path string, h HandlerFunc, opts ...RouteOption) {
	r.handle([]string{http.MethodPut}, path, h, opts)
}

func (r *routerAdapter) PATCH(path string, h HandlerFunc, opts ...RouteOption) {
	r.handle([]string{http.MethodPatch}, path, h, opts)
}

func (r *routerAdapter) DELETE(path string, h HandlerFunc, opts ...RouteOption) {
	r.handle([]string{http.MethodDelete}, path, h, opts)
}

func (r *routerAdapter) HEAD(path string, h HandlerFunc, opts ...RouteOption) {
	r.handle([]string{http.MethodHead}, path, h, opts)
}

func (r *routerAdapter) OPTIONS(path string, h HandlerFunc, opts ...RouteOption) {
	r.handle([]string{http.MethodOptions}, path, h, opts)
}

func (r *routerAdapter) Any(path string, h HandlerFunc, opts ...RouteOption) {
	r.handle(standardMethods, path, h, opts)
}

func (r *routerAdapter) Match(methods []string, path string, h HandlerFunc, opts ...RouteOption) {
	upper := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" && !slices.Contains(upper, m) {
			upper = append(upper, m)
		}
	}
	if len(upper) == 0 {
		panic(fmt.Sprintf("valkyrja: route %q has no methods", path))
	}
	r.handle(upper, path, h, opts)
}

func (r *routerAdapter) Redirect(from, to string, code int, opts ...RouteOption) {
	if code == 0 {
		code = http.StatusFound
	}
	route := r.handle([]string{http.MethodGet, http.MethodHead}, from, func(c Context) error {
		return c.Redirect(code, to)
	}, opts)
	route.RedirectTo = to
	route.RedirectCode = code
}

func (r *routerAdapter) Group(fn func(Router), opts ...RouteOption) {
	fn(r.with("", opts))
}

func (r *routerAdapter) Route(prefix string, fn func(Router), opts ...RouteOption) {
	fn(r.with(prefix, opts))
}

func (r *routerAdapter) With(opts ...RouteOption) Router {
	return r.with("", opts)
}

func (r *routerAdapter) Prefix(prefix string) Router {
	return r.with(prefix, nil)
}

func (r *routerAdapter) Name(prefix string) Router {
	return r.with("", []RouteOption{Name(prefix)})
}

func (r *routerAdapter) Use(mw ...Middleware) {
	Use(mw...)(&r.spec)
}

// Mount serves h under pattern. Group middleware wraps the mounted handler.
func (r *routerAdapter) Mount(pattern string, h http.Handler) {
	full := joinPath(r.prefix, pattern)
	mw, names := r.app.expandMiddleware(r.spec.middleware)
	route := &Route{
		Path:       strings.TrimRight(full, "/") + "/*",
		Methods:    []string{"*"},
		Middleware: names,
		Secure:     r.spec.secure,
	}
	r.app.routes.add(route)

	inner := func(c Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
	r.app.router.Mount(full, r.app.routeHandler(route, r.wrap(inner, mw, route.Secure)))
}

// with derives a child router; the receiver is left untouched.
func (r *routerAdapter) with(prefix string, opts []RouteOption) *routerAdapter {
	var own routeSpec
	for _, opt := range opts {
		opt(&own)
	}
	return &routerAdapter{
		app:    r.app,
		prefix: joinPath(r.prefix, prefix),
		spec:   r.spec.merge(own),
	}
}

// handle records the route and registers it with chi for each method.
func (r *routerAdapter) handle(methods []string, path string, h HandlerFunc, opts []RouteOption) *Route {
	var own routeSpec
	for _, opt := range opts {
		opt(&own)
	}
	spec := r.spec.merge(own)

	// Group name prefixes only apply to routes that name themselves.
	name := ""
	if own.name != "" {
		name = spec.name
	}

	full := routePath(r.prefix, path)
	pattern, err := compilePattern(full, spec.where)
	if err != nil {
		panic(fmt.Sprintf("valkyrja: route %s: %v", full, err))
	}

	mw, names := r.app.expandMiddleware(spec.middleware)
	route := &Route{
		Name:       name,
		Path:       full,
		Methods:    slices.Clone(methods),
		Middleware: names,
		Where:      spec.where,
		Secure:     spec.secure,
	}
	r.app.routes.add(route)

	handler := r.app.routeHandler(route, r.wrap(h, mw, spec.secure))
	patterns := []string{pattern}
	if full != joinPath(r.prefix, path) {
		// Group index routes answer with and without the trailing slash.
		patterns = append(patterns, strings.TrimSuffix(pattern, "/"))
	}
	for _, m := range methods {
		for _, p := range patterns {
			r.app.router.Method(m, p, handler)
		}
	}
	return route
}

// wrap applies route middleware so that the first one runs first. The HTTPS
// redirect of secure routes runs before any of them.
func (r *routerAdapter) wrap(h HandlerFunc, mw []Middleware, secure bool) HandlerFunc {
	h = chain(h, mw)
	if secure {
		h = requireHTTPS(h)
	}
	return h
}

func requireHTTPS(next HandlerFunc) HandlerFunc {
	return func(c Context) error {
		if c.IsSecure() {
			return next(c)
		}
		u := *c.Request().URL
		u.Scheme = "https"
		u.Host = c.Request().Host
		return c.Redirect(http.StatusMovedPermanently, u.String())
	}
}

// expandMiddleware resolves named middleware and groups against the app
// registry. Unknown names and group cycles are configuration errors.
func (a *App) expandMiddleware(refs []mwRef) ([]Middleware, []string) {
	var (
		mws   []Middleware
		names []string
	)
	var expand func(name string, path []string)
	expand = func(name string, path []string) {
		if slices.Contains(path, name) {
			panic(fmt.Sprintf("valkyrja: middleware group cycle: %s", strings.Join(append(path, name), " -> ")))
		}
		if members, ok := a.middlewareGroups[name]; ok {
			path = append(slices.Clone(path), name)
			for _, m := range members {
				expand(m, path)
			}
			return
		}
		mw, ok := a.namedMiddleware[name]
		if !ok {
			panic(fmt.Sprintf("valkyrja: unknown middleware %q", name))
		}
		mws = append(mws, mw)
		names = append(names, name)
	}

	for _, ref := range refs {
		if ref.fn != nil {
			mws = append(mws, ref.fn)
			continue
		}
		expand(ref.name, nil)
	}
	return mws, names
}
