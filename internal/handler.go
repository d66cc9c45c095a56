package internal

// Handler declares routes on a router.
//
// Example:
//
//	type UserHandler struct {
//	    users *orm.Repository[User]
//	}
//
//	func (h *UserHandler) Routes(r valkyrja.Router) {
//	    r.Route("/users", func(r valkyrja.Router) {
//	        r.GET("/", h.index, valkyrja.Name("index"))
//	        r.GET("/{id}", h.show, valkyrja.Name("show"), valkyrja.Where("id", "[0-9]+"))
//	    }, valkyrja.Name("users."))
//	}
type Handler interface {
	Routes(r Router)
}

// HandlerFunc is the signature for route handlers.
// Returning a non-nil error hands the request to the error handler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc to add cross-cutting concerns.
// Middleware can inspect/modify the request, short-circuit processing,
// or wrap the response.
//
// Example:
//
//	func Auth(next valkyrja.HandlerFunc) valkyrja.HandlerFunc {
//	    return func(c valkyrja.Context) error {
//	        if !c.IsAuthenticated() {
//	            return c.RedirectRoute(http.StatusFound, "login", nil)
//	        }
//	        return next(c)
//	    }
//	}
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler handles errors returned from handlers.
// If it returns an error, the default error response is written.
type ErrorHandler func(Context, error) error

// chain wraps h so that mw[0] runs first.
func chain(h HandlerFunc, mw []Middleware) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
