package valkyrja

import (
	"github.com/valkyrjaio/valkyrja/internal"
	"github.com/valkyrjaio/valkyrja/pkg/cookie"
	"github.com/valkyrjaio/valkyrja/pkg/session"
)

type (
	// HTTPError is an error with an HTTP status and a user-facing message.
	HTTPError = internal.HTTPError

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// PanicError wraps a value recovered from a panic together with its stack.
	PanicError = internal.PanicError
)

// Routing errors.
var (
	ErrRouteNotFound       = internal.ErrRouteNotFound
	ErrMissingRouteParam   = internal.ErrMissingRouteParam
	ErrInvalidRouteParam   = internal.ErrInvalidRouteParam
	ErrInvalidRoutePattern = internal.ErrInvalidRoutePattern
)

// Cookie errors.
var (
	ErrCookieNotFound = cookie.ErrNotFound
	ErrCookieNoSecret = cookie.ErrNoSecret
	ErrCookieBadSig   = cookie.ErrBadSig
	ErrCookieDecrypt  = cookie.ErrDecrypt
)

// Session errors.
var (
	ErrSessionNotConfigured = session.ErrNotConfigured
	ErrSessionNotFound      = session.ErrNotFound
	ErrSessionExpired       = session.ErrExpired
	ErrSessionInvalidToken  = session.ErrInvalidToken
	ErrSessionTypeMismatch  = session.ErrTypeMismatch
	ErrSessionTooLarge      = session.ErrTooLarge
)

// NewHTTPError creates an HTTPError. An empty message uses the status text.
//
// Example:
//
//	return valkyrja.NewHTTPError(http.StatusTeapot, "",
//	    valkyrja.WithErrorCode("teapot"))
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

// WithDetail adds a longer description to the rendered error.
func WithDetail(detail string) HTTPErrorOption { return internal.WithDetail(detail) }

// WithErrorCode adds a machine-readable error code.
func WithErrorCode(code string) HTTPErrorOption { return internal.WithErrorCode(code) }

// WithRequestID attaches the request ID to the rendered error.
func WithRequestID(id string) HTTPErrorOption { return internal.WithRequestID(id) }

// WithError wraps an underlying error for logging. It is never rendered.
func WithError(err error) HTTPErrorOption { return internal.WithError(err) }

// ErrBadRequest returns a 400 error.
func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrBadRequest(message, opts...)
}

// ErrUnauthorized returns a 401 error.
func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnauthorized(message, opts...)
}

// ErrForbidden returns a 403 error.
func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrForbidden(message, opts...)
}

// ErrNotFound returns a 404 error.
func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrNotFound(message, opts...)
}

// ErrMethodNotAllowed returns a 405 error.
func ErrMethodNotAllowed(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrMethodNotAllowed(message, opts...)
}

// ErrConflict returns a 409 error.
func ErrConflict(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrConflict(message, opts...)
}

// ErrUnprocessable returns a 422 error.
func ErrUnprocessable(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnprocessable(message, opts...)
}

// ErrInternal returns a 500 error.
func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrInternal(message, opts...)
}

// ErrServiceUnavailable returns a 503 error.
func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrServiceUnavailable(message, opts...)
}

// IsHTTPError reports whether err wraps an HTTPError.
func IsHTTPError(err error) bool { return internal.IsHTTPError(err) }

// AsHTTPError extracts the HTTPError from err, or nil.
func AsHTTPError(err error) *HTTPError { return internal.AsHTTPError(err) }
