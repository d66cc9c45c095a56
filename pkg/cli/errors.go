package cli

import "errors"

var (
	// ErrInvalidChoice is returned by Choice after repeated invalid answers.
	ErrInvalidChoice = errors.New("cli: invalid choice")

	// ErrInvalidAnswer is returned by Confirm after repeated invalid answers.
	ErrInvalidAnswer = errors.New("cli: invalid answer")

	// ErrNoOptions is returned by Choice when called without options.
	ErrNoOptions = errors.New("cli: no options to choose from")
)
