package internal

import (
	"fmt"
	"maps"
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Route is the metadata of a registered route.
type Route struct {
	Name         string
	Path         string
	Methods      []string
	Middleware   []string // names of named middleware, in execution order
	Where        map[string]string
	Secure       bool
	RedirectTo   string
	RedirectCode int
}

func (r Route) clone() Route {
	r.Methods = slices.Clone(r.Methods)
	r.Middleware = slices.Clone(r.Middleware)
	r.Where = maps.Clone(r.Where)
	return r
}

// RouteOption configures a route. Passed to Group, Route or With it applies
// to every route of the group, where Name becomes a name prefix.
type RouteOption func(*routeSpec)

type routeSpec struct {
	name       string
	middleware []mwRef
	where      map[string]string
	secure     bool
}

func (s routeSpec) clone() routeSpec {
	s.middleware = slices.Clone(s.middleware)
	s.where = maps.Clone(s.where)
	return s
}

// merge layers child options over s.
func (s routeSpec) merge(child routeSpec) routeSpec {
	out := s.clone()
	out.name += child.name
	out.middleware = append(out.middleware, child.middleware...)
	for k, v := range child.where {
		if out.where == nil {
			out.where = make(map[string]string)
		}
		out.where[k] = v
	}
	out.secure = out.secure || child.secure
	return out
}

// mwRef is either an inline middleware or a name resolved against the
// app's registry when the route is registered.
type mwRef struct {
	name string
	fn   Middleware
}

// Name names the route. Names must be unique across the app.
func Name(name string) RouteOption {
	return func(s *routeSpec) {
		s.name += name
	}
}

// Use adds middleware running after group middleware, in order.
func Use(mw ...Middleware) RouteOption {
	return func(s *routeSpec) {
		for _, m := range mw {
			s.middleware = append(s.middleware, mwRef{fn: m})
		}
	}
}

// UseNamed adds middleware or middleware groups from the app registry.
// Unknown names panic when the route is registered.
func UseNamed(names ...string) RouteOption {
	return func(s *routeSpec) {
		for _, n := range names {
			s.middleware = append(s.middleware, mwRef{name: n})
		}
	}
}

// Where constrains a path parameter to a regular expression.
//
//	r.GET("/posts/{slug}", h.show, valkyrja.Where("slug", "[a-z0-9-]+"))
func Where(param, pattern string) RouteOption {
	return func(s *routeSpec) {
		if s.where == nil {
			s.where = make(map[string]string)
		}
		s.where[param] = pattern
	}
}

// Secure redirects plain HTTP requests to HTTPS with 301 before the handler runs.
func Secure() RouteOption {
	return func(s *routeSpec) {
		s.secure = true
	}
}

// RouteCollection keeps routes in registration order and indexes them by name.
type RouteCollection struct {
	mu     sync.RWMutex
	routes []*Route
	byName map[string]*Route
}

func newRouteCollection() *RouteCollection {
	return &RouteCollection{byName: make(map[string]*Route)}
}

// add registers r. A duplicate name is a configuration error and panics.
func (rc *RouteCollection) add(r *Route) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if r.Name != "" {
		if _, dup := rc.byName[r.Name]; dup {
			panic(fmt.Sprintf("valkyrja: duplicate route name %q", r.Name))
		}
		rc.byName[r.Name] = r
	}
	rc.routes = append(rc.routes, r)
}

// All returns copies of every route in registration order.
func (rc *RouteCollection) All() []Route {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out := make([]Route, len(rc.routes))
	for i, r := range rc.routes {
		out[i] = r.clone()
	}
	return out
}

// Get returns the route named name.
func (rc *RouteCollection) Get(name string) (Route, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	r, ok := rc.byName[name]
	if !ok {
		return Route{}, false
	}
	return r.clone(), true
}

// URL builds the path of the named route. Parameters not used by the path
// are appended as a sorted query string.
func (rc *RouteCollection) URL(name string, params map[string]string) (string, error) {
	r, ok := rc.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}

	parts, err := parsePattern(r.Path)
	if err != nil {
		return "", err
	}

	used := make(map[string]bool)
	var b strings.Builder
	for _, p := range parts {
		if !p.param {
			b.WriteString(p.text)
			continue
		}
		used[p.text] = true
		v, ok := params[p.text]
		if p.text == "*" {
			b.WriteString(escapeWildcard(v))
			continue
		}
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %q for route %q", ErrMissingRouteParam, p.text, name)
		}
		expr := p.regex
		if expr == "" {
			expr = r.Where[p.text]
		}
		if expr != "" {
			re, err := regexp.Compile("^(?:" + expr + ")$")
			if err != nil || !re.MatchString(v) {
				return "", fmt.Errorf("%w: %s=%q does not match %q", ErrInvalidRouteParam, p.text, v, expr)
			}
		}
		b.WriteString(url.PathEscape(v))
	}

	var extra []string
	for k := range params {
		if !used[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		q := url.Values{}
		for _, k := range extra {
			q.Set(k, params[k])
		}
		b.WriteString("?" + q.Encode())
	}
	return b.String(), nil
}

func escapeWildcard(v string) string {
	segs := strings.Split(v, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

type patternPart struct {
	text  string // literal text, or the parameter name
	regex string
	param bool
}

// parsePattern splits a chi pattern into literals and parameters. Regular
// expressions may contain braces, e.g. {code:[a-z]{2}}.
func parsePattern(pattern string) ([]patternPart, error) {
	var parts []patternPart
	lit := 0
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			if i > lit {
				parts = append(parts, patternPart{text: pattern[lit:i]})
			}
			depth, end := 1, -1
			for j := i + 1; j < len(pattern); j++ {
				if pattern[j] == '{' {
					depth++
				} else if pattern[j] == '}' {
					depth--
					if depth == 0 {
						end = j
						break
					}
				}
			}
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed parameter in %q", ErrInvalidRoutePattern, pattern)
			}
			name, expr, _ := strings.Cut(pattern[i+1:end], ":")
			if name == "" {
				return nil, fmt.Errorf("%w: empty parameter name in %q", ErrInvalidRoutePattern, pattern)
			}
			parts = append(parts, patternPart{text: name, regex: expr, param: true})
			i, lit = end, end+1
		case '*':
			if i != len(pattern)-1 {
				return nil, fmt.Errorf("%w: wildcard must end %q", ErrInvalidRoutePattern, pattern)
			}
			if i > lit {
				parts = append(parts, patternPart{text: pattern[lit:i]})
			}
			parts = append(parts, patternPart{text: "*", param: true})
			lit = len(pattern)
		}
	}
	if lit < len(pattern) {
		parts = append(parts, patternPart{text: pattern[lit:]})
	}
	return parts, nil
}

// compilePattern folds Where constraints into the chi pattern.
func compilePattern(pattern string, where map[string]string) (string, error) {
	parts, err := parsePattern(pattern)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range parts {
		switch {
		case !p.param:
			b.WriteString(p.text)
		case p.text == "*":
			b.WriteString("*")
		default:
			expr := p.regex
			if expr == "" {
				expr = where[p.text]
			}
			if expr == "" {
				b.WriteString("{" + p.text + "}")
				continue
			}
			if _, err := regexp.Compile(expr); err != nil {
				return "", fmt.Errorf("%w: parameter %q: %v", ErrInvalidRoutePattern, p.text, err)
			}
			b.WriteString("{" + p.text + ":" + expr + "}")
		}
	}
	return b.String(), nil
}

// routePath joins a route path onto its group prefix. An index route ("/")
// declared inside a prefixed group keeps the trailing slash.
func routePath(prefix, path string) string {
	if (path == "" || path == "/") && strings.TrimRight(prefix, "/") != "" {
		return strings.TrimRight(prefix, "/") + "/"
	}
	return joinPath(prefix, path)
}

// joinPath prepends a group prefix to a route path.
func joinPath(prefix, path string) string {
	prefix = strings.TrimRight(prefix, "/")
	if path == "" || path == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return prefix + path
}
