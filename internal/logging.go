package internal

import (
	"context"
	"log/slog"

	"github.com/valkyrjaio/valkyrja/pkg/logger"
)

// RouteExtractor returns a logger.ContextExtractor that adds the matched
// route as "route": its name, or its path pattern when it has none.
// Records logged before routing carry nothing.
func RouteExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		rc, ok := ctx.Value(ctxKey{}).(*requestContext)
		if !ok || rc.route == nil {
			return slog.Attr{}, false
		}
		if rc.route.Name != "" {
			return slog.String("route", rc.route.Name), true
		}
		return slog.String("route", rc.route.Path), true
	}
}
