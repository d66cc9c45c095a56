package redis

import "errors"

// Errors returned by Open and Healthcheck. Driver errors are joined to
// them, so errors.Is matches either.
var (
	// ErrNoURL is returned by Open for an empty URL.
	ErrNoURL = errors.New("redis: no URL configured")

	// ErrInvalidURL is returned for anything but a redis:// or rediss:// URL.
	ErrInvalidURL = errors.New("redis: invalid URL")

	// ErrUnreachable is returned once every connection attempt has failed.
	ErrUnreachable = errors.New("redis: server unreachable")

	// ErrUnhealthy is returned by Healthcheck when PING fails.
	ErrUnhealthy = errors.New("redis: healthcheck failed")

	// ErrNilClient is joined to ErrUnhealthy when the check has no client.
	ErrNilClient = errors.New("redis: nil client")
)
