// Package logger builds the slog loggers used across valkyrja.
//
// Loggers write JSON (or text) to stdout and, when a Sentry DSN is
// configured, fan out to Sentry as well. Context extractors add
// request-scoped attributes such as the request id or the matched route to
// every record logged with a request context.
//
//	var cfg Config // loaded with pkg/config
//	log := logger.NewWithConfig(cfg.Log,
//	    middlewares.RequestIDExtractor(),
//	    valkyrja.RouteExtractor(),
//	)
//	app := valkyrja.New(valkyrja.WithCustomLogger(log))
//
// Inside a handler, c.LogInfo and friends log with the request context,
// so the extracted attributes appear without further work:
//
//	c.LogInfo("note created", "id", n.ID)
//	// {"level":"INFO","msg":"note created","id":1,"request_id":"...","route":"notes.create"}
//
// Any context value can be lifted into logs with ContextValue:
//
//	logger.ContextValue[string](tenantKey{}, "tenant")
//
// Decorate and Fanout are the building blocks; they wrap any slog.Handler.
package logger
