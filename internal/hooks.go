package internal

// hooks are the request lifecycle callbacks, run in this order:
// received, matched, dispatched, sending, terminated. caught runs whenever
// a handler fails or panics, before the error handler.
type hooks struct {
	received   []func(c Context) error
	matched    []func(c Context, r Route) error
	dispatched []func(c Context, r Route, err error)
	sending    []func(c Context)
	terminated []func(c Context)
	caught     []func(c Context, err error)
}

func (h *hooks) runReceived(c Context) error {
	for _, fn := range h.received {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (h *hooks) runMatched(c Context, r Route) error {
	for _, fn := range h.matched {
		if err := fn(c, r); err != nil {
			return err
		}
	}
	return nil
}

func (h *hooks) runDispatched(c Context, r Route, err error) {
	for _, fn := range h.dispatched {
		fn(c, r, err)
	}
}

func (h *hooks) runSending(c Context) {
	for _, fn := range h.sending {
		fn(c)
	}
}

func (h *hooks) runTerminated(c Context) {
	for _, fn := range h.terminated {
		fn(c)
	}
}

func (h *hooks) runCaught(c Context, err error) {
	for _, fn := range h.caught {
		fn(c, err)
	}
}

// OnRequestReceived runs fn before routing. An error skips routing and goes
// to the error handler.
func OnRequestReceived(fn func(c Context) error) Option {
	return func(a *App) {
		a.hooks.received = append(a.hooks.received, fn)
	}
}

// OnRouteMatched runs fn once a route matched, before its middleware.
// An error skips the route.
func OnRouteMatched(fn func(c Context, r Route) error) Option {
	return func(a *App) {
		a.hooks.matched = append(a.hooks.matched, fn)
	}
}

// OnRouteDispatched runs fn after the route's handler chain returned.
func OnRouteDispatched(fn func(c Context, r Route, err error)) Option {
	return func(a *App) {
		a.hooks.dispatched = append(a.hooks.dispatched, fn)
	}
}

// OnSendingResponse runs fn just before the status line is written.
// Headers may still be changed.
func OnSendingResponse(fn func(c Context)) Option {
	return func(a *App) {
		a.hooks.sending = append(a.hooks.sending, fn)
	}
}

// OnTerminated runs fn after the response finished, errors included.
func OnTerminated(fn func(c Context)) Option {
	return func(a *App) {
		a.hooks.terminated = append(a.hooks.terminated, fn)
	}
}

// OnThrowableCaught runs fn when a handler returns an error or panics.
// Panics arrive as *PanicError.
func OnThrowableCaught(fn func(c Context, err error)) Option {
	return func(a *App) {
		a.hooks.caught = append(a.hooks.caught, fn)
	}
}
