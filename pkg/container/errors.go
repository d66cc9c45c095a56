package container

import "errors"

// Container errors.
var (
	// ErrNotFound is returned when no binding, alias or deferred provider offers an id.
	ErrNotFound = errors.New("container: service not found")

	// ErrCircularDependency is returned when a service depends on itself
	// through its own resolution chain.
	ErrCircularDependency = errors.New("container: circular dependency")

	// ErrTypeMismatch is returned by Resolve when the service has a different type.
	ErrTypeMismatch = errors.New("container: type mismatch")

	// ErrProvider is returned when a service provider fails to register.
	ErrProvider = errors.New("container: provider failed")
)
