// Package middlewares provides stock middleware for Valkyrja applications.
//
// # Request ID
//
// RequestID keeps an incoming X-Request-ID (or X-Correlation-ID) or
// generates a UUIDv7, stores it in the context and echoes it back. Pair it
// with RequestIDExtractor to get request_id on every log line:
//
//	app := valkyrja.New(
//	    valkyrja.WithLogger("api", middlewares.RequestIDExtractor()),
//	    valkyrja.WithMiddleware(middlewares.RequestID()),
//	)
//
// # Recover and Timeout
//
// Recover converts panics into *PanicError and logs them with a bounded
// stack. Timeout fails requests running past a deadline with 503 wrapping
// a *TimeoutError:
//
//	valkyrja.WithErrorHandler(func(c valkyrja.Context, err error) error {
//	    if middlewares.IsTimeoutError(err) {
//	        return c.Render(http.StatusServiceUnavailable, views.Busy())
//	    }
//	    return err
//	})
//
// # CORS and security headers
//
//	valkyrja.WithMiddleware(
//	    middlewares.CORS(
//	        middlewares.WithAllowOrigins("https://*.example.com"),
//	        middlewares.WithAllowCredentials(),
//	    ),
//	    middlewares.SecureHeaders(),
//	)
//
// # Authentication guard
//
// RequireAuth is meant for the named middleware registry:
//
//	valkyrja.WithNamedMiddleware("auth", middlewares.RequireAuth(middlewares.WithLoginRoute("login")))
//	r.GET("/account", h.account, valkyrja.UseNamed("auth"))
//
// # Recommended Order
//
//	valkyrja.WithMiddleware(
//	    middlewares.CORS(),       // answer preflights first
//	    middlewares.RequestID(),  // id for all later logging
//	    middlewares.Recover(),
//	    middlewares.Timeout(5*time.Second),
//	)
package middlewares
