package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/valkyrjaio/valkyrja/internal"
)

type routes func(r internal.Router)

func (f routes) Routes(r internal.Router) { f(r) }

// run serves req through an app where mw wraps h on "/" for every method.
// It returns the response and the error mw returned.
func run(t *testing.T, req *http.Request, mw internal.Middleware, h internal.HandlerFunc, opts ...internal.Option) (*httptest.ResponseRecorder, error) {
	t.Helper()

	var got error
	capture := func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			got = next(c)
			return got
		}
	}
	app := internal.New(append(opts, internal.WithHandlers(routes(func(r internal.Router) {
		r.Any("/", h, internal.Use(capture, mw))
	})))...)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec, got
}

func get() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/", nil)
}

func noContent(c internal.Context) error {
	return c.NoContent(http.StatusNoContent)
}
