package users

import "github.com/dmitrijs2005/fleetauth/internal/common"

// ValidationError is a rejected input, reported to clients as
// {"detail": Message, "field": Field}.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Unwrap() error { return common.ErrorValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
