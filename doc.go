// Package valkyrja is an HTTP application kernel for Go: a router with named
// routes and middleware groups, request lifecycle hooks, a service container
// with providers, sessions and a console.
//
// Handlers stay plain Go. The kernel wires routing, middleware and services
// around them and gets out of the way.
//
// # Quick Start
//
// Create an application with valkyrja.New, configure it with options and
// call Run to start the HTTP server:
//
//	app := valkyrja.New(
//	    valkyrja.WithCustomLogger(log),
//	    valkyrja.WithSession(store),
//	    valkyrja.WithProviders(repoProvider{db: db}),
//	    valkyrja.WithHandlers(
//	        handlers.NewAuth(),
//	        handlers.NewPosts(),
//	    ),
//	)
//
//	if err := app.Run(":8080"); err != nil {
//	    log.Error("server stopped", "error", err)
//	}
//
// # Handlers and Routes
//
// Handlers implement the [Handler] interface to declare routes. Route options
// name routes, constrain parameters and attach middleware; given to a group
// they apply to every route inside it:
//
//	func (h *Posts) Routes(r valkyrja.Router) {
//	    r.Route("/posts", func(r valkyrja.Router) {
//	        r.GET("/", h.index, valkyrja.Name("index"))
//	        r.GET("/{id}", h.show, valkyrja.Name("show"), valkyrja.Where("id", "[0-9]+"))
//	        r.POST("/", h.store, valkyrja.Name("store"), valkyrja.UseNamed("auth"))
//	    }, valkyrja.Name("posts."))
//	}
//
//	url, err := c.URL("posts.show", map[string]string{"id": "7"})
//
// # Middleware
//
// Global middleware (WithMiddleware) sees every request, matched or not.
// Named middleware and groups are registered once and referenced by name:
//
//	valkyrja.WithNamedMiddleware("auth", middlewares.RequireAuth()),
//	valkyrja.WithNamedMiddleware("timeout", middlewares.Timeout(10*time.Second)),
//	valkyrja.WithMiddlewareGroup("api", "timeout", "auth"),
//
// # Lifecycle Hooks
//
// OnRequestReceived, OnRouteMatched, OnRouteDispatched, OnSendingResponse,
// OnTerminated and OnThrowableCaught observe each stage of a request.
// Received and matched hooks may stop a request by returning an error.
//
// # Services
//
// Every App owns a [Container]. Providers register services at startup, or
// on first use when they declare what they provide:
//
//	repo, err := valkyrja.Service[*PostRepo](c, "posts")
//
// # Shutdown
//
// Run handles SIGINT/SIGTERM for graceful shutdown. Register cleanup with
// ShutdownHook:
//
//	app.Run(":8080",
//	    valkyrja.ShutdownHook(orm.Shutdown(db)),
//	)
//
// The console package builds serve, routes, container, migrate and config
// commands around an App.
package valkyrja
