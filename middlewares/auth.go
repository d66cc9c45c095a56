package middlewares

import (
	"net/http"

	"github.com/valkyrjaio/valkyrja/internal"
)

// RequireAuthOption configures RequireAuth.
type RequireAuthOption func(*requireAuthConfig)

type requireAuthConfig struct {
	loginRoute string
}

// WithLoginRoute redirects unauthenticated browsers to the named route.
// The original path is passed as the "next" query parameter.
func WithLoginRoute(name string) RequireAuthOption {
	return func(cfg *requireAuthConfig) {
		cfg.loginRoute = name
	}
}

// RequireAuth returns middleware that only lets requests with an
// authenticated session through. Others get 401, or a redirect to the
// login route for clients that prefer HTML.
//
//	valkyrja.WithNamedMiddleware("auth", middlewares.RequireAuth(
//	    middlewares.WithLoginRoute("login"),
//	))
func RequireAuth(opts ...RequireAuthOption) internal.Middleware {
	cfg := &requireAuthConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			if c.IsAuthenticated() {
				return next(c)
			}
			if cfg.loginRoute != "" && c.Accepts("text/html", "application/json") == "text/html" {
				return c.RedirectRoute(http.StatusFound, cfg.loginRoute, map[string]string{
					"next": c.Request().URL.RequestURI(),
				})
			}
			return internal.ErrUnauthorized("")
		}
	}
}
