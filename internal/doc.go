// Package internal provides the core types and implementation of the
// Valkyrja HTTP kernel.
//
// This package is internal and should not be used directly. Import
// "github.com/valkyrjaio/valkyrja" instead, which re-exports the public API.
//
// # Core Types
//
//   - App: owns the chi router, the service container, lifecycle hooks and
//     graceful shutdown
//   - Context: request and response access, session, cookies and helpers
//   - Router: the interface handlers use to declare routes and groups
//   - Route: metadata of a registered route, looked up by name
//   - Handler, HandlerFunc, Middleware, ErrorHandler
//
// # Request Lifecycle
//
// Every request passes through the same stages. Hooks registered with the
// On* options observe them:
//
//	received -> global middleware -> router -> matched -> route middleware
//	  -> handler -> dispatched -> sending -> terminated
//
// A hook or handler error goes to OnThrowableCaught hooks and then to the
// error handler. Panics are recovered and reported as *PanicError.
//
// # Routes
//
// Routes carry a name, middleware, parameter constraints and a secure
// flag. Options passed to Group or Route apply to every route inside:
//
//	r.Route("/users", func(r internal.Router) {
//	    r.GET("/", h.index, internal.Name("index"))
//	    r.GET("/{id}", h.show, internal.Name("show"), internal.Where("id", "[0-9]+"))
//	}, internal.Name("users."), internal.UseNamed("auth"))
//
//	url, err := app.URL("users.show", map[string]string{"id": "42"})
//
// Duplicate names, unknown middleware names and middleware group cycles
// are configuration errors and panic while the app is built.
//
// # Context as context.Context
//
// Context embeds context.Context; pass it straight to database calls and
// HTTP clients.
//
// # Sessions
//
// Sessions load lazily on first access and are saved before the response
// is written. Rotate the token on privilege changes with AuthenticateSession.
package internal
