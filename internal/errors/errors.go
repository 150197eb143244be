package errors

import (
	"errors"
	"fmt"
)

// Common error types shared across the client packages
var (
	// Input errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrMissingField   = errors.New("missing required field")

	// Remote collaborator errors
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
