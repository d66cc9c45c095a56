package internal_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valkyrjaio/valkyrja/internal"
)

func echo(c internal.Context) error {
	return c.String(http.StatusOK, c.Request().Method+" "+c.Request().URL.Path)
}

func newApp(fn func(r internal.Router), opts ...internal.Option) *internal.App {
	return internal.New(append(opts, internal.WithHandlers(routes(fn)))...)
}

func do(app http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRouter_GroupsAndNames(t *testing.T) {
	t.Parallel()

	app := newApp(func(r internal.Router) {
		r.GET("/", echo, internal.Name("home"))
		r.Route("/admin", func(r internal.Router) {
			r.GET("/users", echo, internal.Name("users"))
			r.POST("/users", echo)
			r.Route("/posts", func(r internal.Router) {
				r.DELETE("/{id}", echo, internal.Name("destroy"))
			}, internal.Name("posts."))
		}, internal.Name("admin."))
		r.Prefix("/v1").Name("api.").GET("/ping", echo, internal.Name("ping"))
		r.Group(func(r internal.Router) {
			r.PUT("/flat", echo, internal.Name("flat"))
		})
	})

	names := map[string]string{}
	for _, route := range app.Routes() {
		names[route.Path+" "+route.Methods[0]] = route.Name
	}
	assert.Equal(t, map[string]string{
		"/ GET":                    "home",
		"/admin/users GET":         "admin.users",
		"/admin/users POST":        "",
		"/admin/posts/{id} DELETE": "admin.posts.destroy",
		"/v1/ping GET":             "api.ping",
		"/flat PUT":                "flat",
	}, names)

	route, found := app.Route("admin.posts.destroy")
	require.True(t, found)
	assert.Equal(t, []string{http.MethodDelete}, route.Methods)

	assert.Equal(t, "DELETE /admin/posts/3", do(app, http.MethodDelete, "/admin/posts/3").Body.String())
	assert.Equal(t, "GET /v1/ping", do(app, http.MethodGet, "/v1/ping").Body.String())
}

func TestRouter_GroupIndex(t *testing.T) {
	t.Parallel()

	app := newApp(func(r internal.Router) {
		r.Route("/notes", func(r internal.Router) {
			r.GET("/", echo, internal.Name("index"))
			r.GET("/{id}", echo, internal.Name("show"))
		}, internal.Name("notes."))
	})

	rec := do(app, http.MethodGet, "/notes/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET /notes/", rec.Body.String())

	rec = do(app, http.MethodGet, "/notes")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET /notes", rec.Body.String())

	url, err := app.URL("notes.index", nil)
	require.NoError(t, err)
	assert.Equal(t, "/notes/", url)

	route, found := app.Route("notes.index")
	require.True(t, found)
	assert.Equal(t, "/notes/", route.Path)
	assert.Len(t, app.Routes(), 2)
}

func TestRouter_Where(t *testing.T) {
	t.Parallel()

	app := newApp(func(r internal.Router) {
		r.GET("/posts/{id}", echo, internal.Where("id", "[0-9]+"))
		r.GET("/{lang:[a-z]{2}}/home", echo)
		r.Route("/tags", func(r internal.Router) {
			r.GET("/{tag}", echo)
		}, internal.Where("tag", "[a-z]+"))
	})

	assert.Equal(t, http.StatusOK, do(app, http.MethodGet, "/posts/12").Code)
	assert.Equal(t, http.StatusNotFound, do(app, http.MethodGet, "/posts/abc").Code)
	assert.Equal(t, http.StatusOK, do(app, http.MethodGet, "/en/home").Code)
	assert.Equal(t, http.StatusNotFound, do(app, http.MethodGet, "/eng/home").Code)
	assert.Equal(t, http.StatusOK, do(app, http.MethodGet, "/tags/go").Code)
	assert.Equal(t, http.StatusNotFound, do(app, http.MethodGet, "/tags/G0").Code)

	route := app.Routes()[0]
	assert.Equal(t, map[string]string{"id": "[0-9]+"}, route.Where)
}

func TestRouter_Secure(t *testing.T) {
	t.Parallel()

	app := newApp(func(r internal.Router) {
		r.GET("/pay", echo, internal.Secure())
		r.With(internal.Secure()).GET("/account", echo)
	})

	rec := do(app, http.MethodGet, "/pay?x=1")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://example.com/pay?x=1", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, route := range app.Routes() {
		assert.True(t, route.Secure, route.Path)
	}
}

func TestRouter_Redirect(t *testing.T) {
	t.Parallel()

	app := newApp(func(r internal.Router) {
		r.Redirect("/old", "/new", 0, internal.Name("old"))
		r.Redirect("/gone", "https://example.org/", http.StatusMovedPermanently)
	})

	rec := do(app, http.MethodGet, "/old")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/new", rec.Header().Get("Location"))

	rec = do(app, http.MethodHead, "/gone")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)

	assert.Equal(t, http.StatusMethodNotAllowed, do(app, http.MethodPost, "/old").Code)

	route, found := app.Route("old")
	require.True(t, found)
	assert.Equal(t, "/new", route.RedirectTo)
	assert.Equal(t, http.StatusFound, route.RedirectCode)
	assert.Equal(t, []string{http.MethodGet, http.MethodHead}, route.Methods)
}

func TestRouter_AnyAndMatch(t *testing.T) {
	t.Parallel()

	app := newApp(func(r internal.Router) {
		r.Any("/any", echo)
		r.Match([]string{"get", " post ", "GET"}, "/some", echo, internal.Name("some"))
		r.HEAD("/head", echo)
		r.OPTIONS("/opts", echo)
		r.PATCH("/patch", echo)
	})

	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions} {
		assert.Equal(t, http.StatusOK, do(app, m, "/any").Code, m)
	}
	assert.Equal(t, http.StatusOK, do(app, http.MethodPost, "/some").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(app, http.MethodPut, "/some").Code)
	assert.Equal(t, http.StatusOK, do(app, http.MethodHead, "/head").Code)
	assert.Equal(t, http.StatusOK, do(app, http.MethodOptions, "/opts").Code)
	assert.Equal(t, http.StatusOK, do(app, http.MethodPatch, "/patch").Code)

	route, _ := app.Route("some")
	assert.Equal(t, []string{http.MethodGet, http.MethodPost}, route.Methods)

	assert.PanicsWithValue(t, `valkyrja: route "/x" has no methods`, func() {
		newApp(func(r internal.Router) { r.Match(nil, "/x", echo) })
	})
}

func TestRouter_Mount(t *testing.T) {
	t.Parallel()

	var seen []string
	record := func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			seen = append(seen, c.Request().URL.Path)
			return next(c)
		}
	}
	legacy := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("legacy " + r.URL.Path))
	})

	app := newApp(func(r internal.Router) {
		r.Route("/old", func(r internal.Router) {
			r.Mount("/app", legacy)
		}, internal.Use(record))
	})

	rec := do(app, http.MethodPost, "/old/app/x/y")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "legacy /old/app/x/y", rec.Body.String())
	assert.Equal(t, []string{"/old/app/x/y"}, seen)

	routes := app.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "/old/app/*", routes[0].Path)
	assert.Equal(t, []string{"*"}, routes[0].Methods)
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	record := func(name string) internal.Middleware {
		return func(next internal.HandlerFunc) internal.HandlerFunc {
			return func(c internal.Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}

	app := newApp(func(r internal.Router) {
		r.Group(func(r internal.Router) {
			r.GET("/before", echo)
			r.Use(record("use"))
			r.GET("/", echo, internal.Use(record("route")), internal.UseNamed("auth"))
		}, internal.UseNamed("web"))
	},
		internal.WithMiddleware(record("global")),
		internal.WithNamedMiddleware("auth", record("auth")),
		internal.WithNamedMiddleware("csrf", record("csrf")),
		internal.WithNamedMiddleware("session", record("session")),
		internal.WithMiddlewareGroup("web", "session", "base"),
		internal.WithMiddlewareGroup("base", "csrf"),
	)

	require.Equal(t, http.StatusOK, do(app, http.MethodGet, "/").Code)
	assert.Equal(t, []string{"global", "session", "csrf", "use", "route", "auth"}, order)

	order = nil
	require.Equal(t, http.StatusOK, do(app, http.MethodGet, "/before").Code)
	assert.Equal(t, []string{"global", "session", "csrf"}, order, "Use applies to later routes only")

	route := app.Routes()[1]
	assert.Equal(t, []string{"session", "csrf", "auth"}, route.Middleware)
}

func TestRouter_MiddlewareShortCircuit(t *testing.T) {
	t.Parallel()

	deny := func(internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			return internal.ErrForbidden("")
		}
	}
	called := false
	app := newApp(func(r internal.Router) {
		r.GET("/", func(c internal.Context) error {
			called = true
			return nil
		}, internal.Use(deny))
	})

	assert.Equal(t, http.StatusForbidden, do(app, http.MethodGet, "/").Code)
	assert.False(t, called)
}

func TestRouter_ConfigurationPanics(t *testing.T) {
	t.Parallel()

	t.Run("duplicate name", func(t *testing.T) {
		t.Parallel()
		assert.PanicsWithValue(t, `valkyrja: duplicate route name "a"`, func() {
			newApp(func(r internal.Router) {
				r.GET("/one", echo, internal.Name("a"))
				r.GET("/two", echo, internal.Name("a"))
			})
		})
	})

	t.Run("unknown middleware", func(t *testing.T) {
		t.Parallel()
		assert.PanicsWithValue(t, `valkyrja: unknown middleware "nope"`, func() {
			newApp(func(r internal.Router) {
				r.GET("/", echo, internal.UseNamed("nope"))
			})
		})
	})

	t.Run("group cycle", func(t *testing.T) {
		t.Parallel()
		assert.PanicsWithValue(t, "valkyrja: middleware group cycle: a -> b -> a", func() {
			newApp(func(r internal.Router) {
				r.GET("/", echo, internal.UseNamed("a"))
			}, internal.WithMiddlewareGroup("a", "b"), internal.WithMiddlewareGroup("b", "a"))
		})
	})

	t.Run("bad pattern", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			newApp(func(r internal.Router) { r.GET("/{id", echo) })
		})
		assert.Panics(t, func() {
			newApp(func(r internal.Router) { r.GET("/{id}", echo, internal.Where("id", "[")) })
		})
	})
}

func TestRouter_URL(t *testing.T) {
	t.Parallel()

	app := newApp(func(r internal.Router) {
		r.GET("/users/{id}", echo, internal.Name("users.show"), internal.Where("id", "[0-9]+"))
		r.GET("/{lang:[a-z]{2}}/home", echo, internal.Name("home"))
		r.GET("/files/*", echo, internal.Name("files"))
		r.GET("/", echo, internal.Name("root"))
	})

	tests := []struct {
		name   string
		route  string
		params map[string]string
		want   string
		err    error
	}{
		{"params and query", "users.show", map[string]string{"id": "42", "tab": "posts", "a": "1"}, "/users/42?a=1&tab=posts", nil},
		{"inline regex", "home", map[string]string{"lang": "en"}, "/en/home", nil},
		{"wildcard", "files", map[string]string{"*": "a b/c.txt"}, "/files/a%20b/c.txt", nil},
		{"root", "root", nil, "/", nil},
		{"missing param", "users.show", nil, "", internal.ErrMissingRouteParam},
		{"param fails where", "users.show", map[string]string{"id": "abc"}, "", internal.ErrInvalidRouteParam},
		{"param fails inline regex", "home", map[string]string{"lang": "eng"}, "", internal.ErrInvalidRouteParam},
		{"unknown route", "nope", nil, "", internal.ErrRouteNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := app.URL(tt.route, tt.params)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
