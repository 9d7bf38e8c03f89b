package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status int
	// Detail is the backend's human-readable message, if it sent one.
	Detail string
	// Field names the offending input for validation failures, if known.
	Field string
	Err   error
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v (status %d): %s", e.Err, e.Status, e.Detail)
	}
	return fmt.Sprintf("%v (status %d)", e.Err, e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }
