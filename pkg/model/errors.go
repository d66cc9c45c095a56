package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCast is returned for a cast tag naming no known cast.
	ErrUnknownCast = errors.New("model: unknown cast")

	// ErrUnsupportedCast is returned by Cast for a target type it cannot produce.
	ErrUnsupportedCast = errors.New("model: unsupported cast target")

	// ErrInvalidTarget is returned when Fill gets something other than a struct pointer.
	ErrInvalidTarget = errors.New("model: target must be a non-nil struct pointer")

	// ErrDecode is returned when values cannot be decoded into the target.
	ErrDecode = errors.New("model: decode failed")
)

// CastError reports a value that could not be cast for a field.
type CastError struct {
	Field string
	Cast  string
	Err   error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("model: field %q: cast %q: %v", e.Field, e.Cast, e.Err)
}

func (e *CastError) Unwrap() error { return e.Err }
