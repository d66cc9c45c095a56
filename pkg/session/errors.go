package session

import "errors"

// Session errors.
var (
	// ErrNotConfigured is returned when session functionality is used
	// but WithSession was not configured on the app.
	ErrNotConfigured = errors.New("session: not configured")

	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session: not found")

	// ErrExpired is returned when a session has expired.
	ErrExpired = errors.New("session: expired")

	// ErrInvalidToken is returned when a session token is invalid.
	ErrInvalidToken = errors.New("session: invalid token")

	// ErrTypeMismatch is returned by Value when a stored value cannot be
	// converted to the requested type.
	ErrTypeMismatch = errors.New("session: type mismatch")

	// ErrUnsupported is returned by stores that cannot perform an operation.
	ErrUnsupported = errors.New("session: operation not supported by store")

	// ErrTooLarge is returned by CookieStore when the encoded session
	// does not fit in a cookie.
	ErrTooLarge = errors.New("session: encoded session too large")

	// ErrUnknownDriver is returned by Open for an unrecognized driver.
	ErrUnknownDriver = errors.New("session: unknown driver")

	// ErrInvalidSchedule is returned by NewJanitor for a bad cron spec.
	ErrInvalidSchedule = errors.New("session: invalid prune schedule")

	// ErrStoreFailed wraps backend failures.
	ErrStoreFailed = errors.New("session: store failed")
)
