package internal_test

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valkyrjaio/valkyrja/internal"
	"github.com/valkyrjaio/valkyrja/pkg/cookie"
	"github.com/valkyrjaio/valkyrja/pkg/session"
)

func TestContext_Scheme(t *testing.T) {
	t.Parallel()

	inspect(t, "/", "/", func(c internal.Context) {
		assert.Equal(t, "http", c.Scheme())
		assert.False(t, c.IsSecure())
	})

	tlsReq := httptest.NewRequest(http.MethodGet, "/", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	serve(t, tlsReq, func(r internal.Router) {
		r.GET("/", func(c internal.Context) error {
			assert.Equal(t, "https", c.Scheme())
			return nil
		})
	})

	fwd := httptest.NewRequest(http.MethodGet, "/", nil)
	fwd.Header.Set("X-Forwarded-Proto", "HTTPS, http")
	serve(t, fwd, func(r internal.Router) {
		r.GET("/", func(c internal.Context) error {
			assert.True(t, c.IsSecure())
			return nil
		})
	})
}

func TestContext_Accepts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		accept string
		offers []string
		want   string
	}{
		{"", []string{"text/html", "application/json"}, "text/html"},
		{"application/json", []string{"text/html", "application/json"}, "application/json"},
		{"text/*;q=0.5, application/json", []string{"text/html", "application/json"}, "application/json"},
		{"text/html;q=0.2, */*;q=0.9", []string{"text/html", "application/json"}, "application/json"},
		{"image/png", []string{"text/html"}, ""},
		{"*/*", []string{"application/json", "text/html"}, "application/json"},
		{"text/html;q=0", []string{"text/html"}, ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.accept != "" {
			req.Header.Set("Accept", tt.accept)
		}
		serve(t, req, func(r internal.Router) {
			r.GET("/", func(c internal.Context) error {
				assert.Equal(t, tt.want, c.Accepts(tt.offers...), tt.accept)
				return nil
			})
		})
	}
}

type signup struct {
	Email string   `model:"email" cast:"trim,lower"`
	Age   int      `model:"age"`
	Tags  []string `model:"tags"`
}

func TestContext_Bind(t *testing.T) {
	t.Parallel()

	t.Run("form", func(t *testing.T) {
		t.Parallel()
		body := url.Values{"email": {"  ADA@Example.com "}, "age": {"36"}, "tags": {"a", "b"}}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		serve(t, req, func(r internal.Router) {
			r.POST("/", func(c internal.Context) error {
				var in signup
				require.NoError(t, c.BindForm(&in))
				assert.Equal(t, signup{Email: "ada@example.com", Age: 36, Tags: []string{"a", "b"}}, in)
				return nil
			})
		})
	})

	t.Run("query with bad value", func(t *testing.T) {
		t.Parallel()
		rec := inspect(t, "/", "/?age=old", func(c internal.Context) {
			var in signup
			err := c.BindQuery(&in)
			httpErr := internal.AsHTTPError(err)
			require.NotNil(t, httpErr)
			assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Email":"x@y.z","Age":3}`))
		serve(t, req, func(r internal.Router) {
			r.POST("/", func(c internal.Context) error {
				var in signup
				require.NoError(t, c.BindJSON(&in))
				assert.Equal(t, "x@y.z", in.Email)
				return nil
			})
		})

		bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		rec := serve(t, bad, func(r internal.Router) {
			r.POST("/", func(c internal.Context) error {
				var in signup
				return c.BindJSON(&in)
			})
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestContext_Responses(t *testing.T) {
	t.Parallel()

	handlers := func(r internal.Router) {
		r.GET("/json", func(c internal.Context) error {
			return c.JSON(http.StatusCreated, map[string]int{"n": 1})
		})
		r.GET("/html", func(c internal.Context) error {
			return c.HTML(http.StatusOK, "<p>hi</p>")
		})
		r.GET("/blob", func(c internal.Context) error {
			return c.Blob(http.StatusOK, "application/octet-stream", []byte{1, 2, 3})
		})
		r.GET("/text", func(c internal.Context) error {
			c.SetHeader("X-Extra", "1")
			return c.String(http.StatusAccepted, "plain")
		})
		r.GET("/none", func(c internal.Context) error {
			return c.NoContent(http.StatusNoContent)
		})
		r.GET("/templ", func(c internal.Context) error {
			return c.Render(http.StatusOK, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
				_, err := io.WriteString(w, "<b>templ</b>")
				return err
			}))
		})
		r.GET("/users/{id}", func(c internal.Context) error { return nil }, internal.Name("users.show"))
		r.GET("/go", func(c internal.Context) error {
			return c.RedirectRoute(http.StatusSeeOther, "users.show", map[string]string{"id": "9"})
		})
		r.GET("/broken", func(c internal.Context) error {
			return c.RedirectRoute(http.StatusSeeOther, "nope", nil)
		})
	}

	tests := []struct {
		path        string
		code        int
		contentType string
		body        string
		header      [2]string
	}{
		{"/json", http.StatusCreated, "application/json; charset=utf-8", "{\"n\":1}\n", [2]string{}},
		{"/html", http.StatusOK, "text/html; charset=utf-8", "<p>hi</p>", [2]string{}},
		{"/blob", http.StatusOK, "application/octet-stream", "\x01\x02\x03", [2]string{"Content-Length", "3"}},
		{"/text", http.StatusAccepted, "text/plain; charset=utf-8", "plain", [2]string{"X-Extra", "1"}},
		{"/none", http.StatusNoContent, "", "", [2]string{}},
		{"/templ", http.StatusOK, "text/html; charset=utf-8", "<b>templ</b>", [2]string{}},
		{"/go", http.StatusSeeOther, "", "", [2]string{"Location", "/users/9"}},
		{"/broken", http.StatusInternalServerError, "", "", [2]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			rec := serve(t, httptest.NewRequest(http.MethodGet, tt.path, nil), handlers)
			assert.Equal(t, tt.code, rec.Code)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			if tt.header[0] != "" {
				assert.Equal(t, tt.header[1], rec.Header().Get(tt.header[0]))
			}
		})
	}
}

func TestContext_RouteAndValues(t *testing.T) {
	t.Parallel()

	type key struct{}
	rec := serve(t, httptest.NewRequest(http.MethodGet, "/posts/hello", nil), func(r internal.Router) {
		r.Route("/posts", func(r internal.Router) {
			r.GET("/{slug}", func(c internal.Context) error {
				route, ok := c.Route()
				require.True(t, ok)
				assert.Equal(t, "posts.show", route.Name)
				assert.Equal(t, "/posts/{slug}", route.Path)
				assert.Equal(t, "hello", c.Param("slug"))

				c.Set(key{}, "v")
				assert.Equal(t, "v", c.Get(key{}))
				assert.Equal(t, "v", c.Value(key{}))
				assert.NotNil(t, c.Container())
				assert.NotNil(t, c.Logger())
				return c.String(http.StatusOK, "ok")
			}, internal.Name("show"))
		}, internal.Name("posts."))
	})
	assert.Equal(t, "ok", rec.Body.String())
}

func TestContext_Cookies(t *testing.T) {
	t.Parallel()

	opt := internal.WithCookieOptions(cookie.WithSecret(testSecret))
	rec := inspect(t, "/", "/", func(c internal.Context) {
		c.SetCookie("plain", "p", 60)
		require.NoError(t, c.SetCookieSigned("signed", "s", 60))
		require.NoError(t, c.SetCookieEncrypted("sealed", "e", 60))
		require.NoError(t, c.SetFlash("notice", "saved"))
	}, opt)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range rec.Result().Cookies() {
		req.AddCookie(ck)
	}
	serve(t, req, func(r internal.Router) {
		r.GET("/", func(c internal.Context) error {
			v, err := c.Cookie("plain")
			require.NoError(t, err)
			assert.Equal(t, "p", v)
			v, err = c.CookieSigned("signed")
			require.NoError(t, err)
			assert.Equal(t, "s", v)
			v, err = c.CookieEncrypted("sealed")
			require.NoError(t, err)
			assert.Equal(t, "e", v)
			var notice string
			require.NoError(t, c.Flash("notice", &notice))
			assert.Equal(t, "saved", notice)
			c.DeleteCookie("plain")
			return nil
		})
	}, opt)
}

// sessionApp returns an app whose handlers drive the session API.
func sessionApp(t *testing.T, store session.Store, extra ...internal.Option) *internal.App {
	t.Helper()
	opts := append([]internal.Option{
		internal.WithSession(store),
		internal.WithHandlers(routes(func(r internal.Router) {
			r.POST("/login", func(c internal.Context) error {
				return c.AuthenticateSession(c.Query("user"))
			})
			r.POST("/cart", func(c internal.Context) error {
				return c.SetSessionValue("items", c.Query("n"))
			})
			r.GET("/cart", func(c internal.Context) error {
				v, err := c.SessionValue("items")
				if err != nil {
					return c.String(http.StatusOK, "none")
				}
				return c.JSON(http.StatusOK, map[string]any{"items": v, "user": c.UserID()})
			})
			r.POST("/logout", func(c internal.Context) error {
				return c.DestroySession()
			})
		})),
	}, extra...)
	return internal.New(opts...)
}

type client struct {
	t       *testing.T
	handler http.Handler
	jar     map[string]*http.Cookie
}

func (cl *client) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cl.jar {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	cl.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(cl.jar, c.Name)
			continue
		}
		cl.jar[c.Name] = c
	}
	return rec
}

func TestContext_SessionLifecycle(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	cl := &client{t: t, handler: sessionApp(t, store), jar: map[string]*http.Cookie{}}

	assert.Equal(t, "none", cl.do(http.MethodGet, "/cart").Body.String())

	cl.do(http.MethodPost, "/cart?n=3")
	require.Contains(t, cl.jar, "__sid")
	first := cl.jar["__sid"].Value

	rec := cl.do(http.MethodGet, "/cart")
	assert.JSONEq(t, `{"items":"3","user":""}`, rec.Body.String())

	cl.do(http.MethodPost, "/login?user=u-1")
	assert.NotEqual(t, first, cl.jar["__sid"].Value, "token rotated on login")

	rec = cl.do(http.MethodGet, "/cart")
	assert.JSONEq(t, `{"items":"3","user":"u-1"}`, rec.Body.String())

	old := httptest.NewRequest(http.MethodGet, "/cart", nil)
	old.AddCookie(&http.Cookie{Name: "__sid", Value: first})
	stale := httptest.NewRecorder()
	cl.handler.ServeHTTP(stale, old)
	assert.Equal(t, "none", stale.Body.String(), "pre-login token no longer works")

	cl.do(http.MethodPost, "/logout")
	assert.NotContains(t, cl.jar, "__sid")
}

func TestContext_CookieSessionReissued(t *testing.T) {
	t.Parallel()

	m := cookie.New(cookie.WithSecret(testSecret))
	cl := &client{t: t, handler: sessionApp(t, session.NewCookieStore(m)), jar: map[string]*http.Cookie{}}

	cl.do(http.MethodPost, "/cart?n=1")
	first := cl.jar["__sid"].Value

	cl.do(http.MethodPost, "/cart?n=2")
	assert.NotEqual(t, first, cl.jar["__sid"].Value, "state change re-encrypts the cookie")

	rec := cl.do(http.MethodGet, "/cart")
	assert.JSONEq(t, `{"items":"2","user":""}`, rec.Body.String())
}

func TestContext_SessionNotConfigured(t *testing.T) {
	t.Parallel()

	inspect(t, "/", "/", func(c internal.Context) {
		_, err := c.Session()
		require.ErrorIs(t, err, session.ErrNotConfigured)
		require.ErrorIs(t, c.InitSession(), session.ErrNotConfigured)
		require.ErrorIs(t, c.AuthenticateSession("u"), session.ErrNotConfigured)
		require.ErrorIs(t, c.SetSessionValue("k", 1), session.ErrNotConfigured)
		require.ErrorIs(t, c.DestroySession(), session.ErrNotConfigured)
		assert.Empty(t, c.UserID())
		assert.False(t, c.IsAuthenticated())
	})
}

func TestContext_ExpiredSessionCookieCleared(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	sess := session.New("sid-1", "tok-1", time.Now().Add(50*time.Millisecond))
	require.NoError(t, store.Create(context.Background(), sess))
	time.Sleep(100 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: "__sid", Value: "tok-1"})
	rec := httptest.NewRecorder()
	sessionApp(t, store).ServeHTTP(rec, req)

	assert.Equal(t, "none", rec.Body.String())
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		cleared = cleared || (c.Name == "__sid" && c.MaxAge < 0)
	}
	assert.True(t, cleared)
}
