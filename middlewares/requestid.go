package middlewares

import (
	"github.com/valkyrjaio/valkyrja/internal"
	"github.com/valkyrjaio/valkyrja/pkg/id"
	"github.com/valkyrjaio/valkyrja/pkg/logger"
)

// requestIDKey is the context key for storing the request ID.
type requestIDKey struct{}

// DefaultRequestIDHeader is the response header carrying the request ID.
const DefaultRequestIDHeader = "X-Request-ID"

// maxRequestIDLength caps ids accepted from clients.
const maxRequestIDLength = 128

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	Generator      func() string      // ID generator function
	Extractor      internal.Extractor // Where to look for an incoming ID
	ResponseHeader string             // Response header name
}

// RequestIDOption configures RequestIDConfig.
type RequestIDOption func(*RequestIDConfig)

// WithRequestIDSources replaces the places searched for an incoming ID.
//
//	middlewares.WithRequestIDSources(
//	    valkyrja.FromHeader("X-Amzn-Trace-Id"),
//	    valkyrja.FromQuery("rid"),
//	)
func WithRequestIDSources(sources ...internal.ExtractorSource) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.Extractor = internal.NewExtractor(sources...)
	}
}

// WithRequestIDGenerator sets a custom ID generator function.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		if gen != nil {
			cfg.Generator = gen
		}
	}
}

// WithRequestIDResponseHeader sets the response header name.
func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.ResponseHeader = header
	}
}

// RequestID returns middleware that assigns an ID to each request.
// An ID sent by the client or a proxy (X-Request-ID, X-Correlation-ID by
// default) is kept so traces line up; otherwise a new UUIDv7 is generated.
// Incoming ids longer than 128 bytes are ignored.
func RequestID(opts ...RequestIDOption) internal.Middleware {
	cfg := &RequestIDConfig{
		Generator: id.New,
		Extractor: internal.NewExtractor(
			internal.FromHeader("X-Request-ID"),
			internal.FromHeader("X-Correlation-ID"),
		),
		ResponseHeader: DefaultRequestIDHeader,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			reqID, ok := cfg.Extractor.Extract(c)
			if !ok || len(reqID) > maxRequestIDLength {
				reqID = cfg.Generator()
			}

			c.Set(requestIDKey{}, reqID)
			if cfg.ResponseHeader != "" {
				c.SetHeader(cfg.ResponseHeader, reqID)
			}

			return next(c)
		}
	}
}

// GetRequestID extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func GetRequestID(c internal.Context) string {
	if v, ok := c.Get(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// RequestIDExtractor returns a ContextExtractor for use with WithLogger.
// Automatically adds "request_id" to all log entries.
func RequestIDExtractor() logger.ContextExtractor {
	return logger.ContextValue[string](requestIDKey{}, "request_id")
}
