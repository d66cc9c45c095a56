package internal

import (
	"github.com/valkyrjaio/valkyrja/pkg/container"
	"github.com/valkyrjaio/valkyrja/pkg/model"
)

// ContextValue returns the request context value stored under key, or the
// zero value of T when it is missing or of another type.
func ContextValue[T any](c Context, key any) T {
	if v, ok := c.Get(key).(T); ok {
		return v
	}
	var zero T
	return zero
}

// Service resolves a service from the application container.
//
//	users, err := valkyrja.Service[*UserService](c, "users")
func Service[T any](c Context, id string) (T, error) {
	return container.Resolve[T](c.Container(), id)
}

// Param returns the path parameter converted to T, or the zero value
// when it does not parse.
func Param[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	v, _ := convertParam[T](c.Param(name))
	return v
}

// Query returns the query parameter converted to T.
func Query[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	v, _ := convertParam[T](c.Query(name))
	return v
}

// QueryDefault retrieves a typed query parameter with a default value.
// Returns defaultValue if the parameter is empty or cannot be parsed.
func QueryDefault[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string, defaultValue T) T {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue
	}
	v, ok := convertParam[T](raw)
	if !ok {
		return defaultValue
	}
	return v
}

// convertParam converts a raw string to T through model.Cast, so named
// types (type Status string) convert by their underlying kind.
func convertParam[T ~string | ~int | ~int64 | ~float64 | ~bool](raw string) (T, bool) {
	v, err := model.Cast[T](raw)
	if err != nil {
		var zero T
		return zero, false
	}
	return v, true
}
