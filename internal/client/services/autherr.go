package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fleetauth/internal/client/client"
)

// ErrorKind classifies every failure the controller reports.
type ErrorKind int

const (
	KindInvalidCredentials ErrorKind = iota + 1
	KindNetworkFailure
	KindBiometricUnavailable
	KindBiometricFailed
	KindVaultEmpty
	KindValidationFailed
	// KindStorageFailure: a local write needed by a mutating operation
	// failed. Prior state is kept.
	KindStorageFailure
	// KindNotAuthenticated: the operation needs a session.
	KindNotAuthenticated
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindNetworkFailure:
		return "network failure"
	case KindBiometricUnavailable:
		return "biometric unavailable"
	case KindBiometricFailed:
		return "biometric failed"
	case KindVaultEmpty:
		return "vault empty"
	case KindValidationFailed:
		return "validation failed"
	case KindStorageFailure:
		return "storage failure"
	case KindNotAuthenticated:
		return "not authenticated"
	default:
		return "unknown"
	}
}

// AuthError is the only error type returned by SessionController.
// Message is safe to show to the user.
type AuthError struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error

	cancelled bool
}

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrInvalidCredentials   = &AuthError{Kind: KindInvalidCredentials}
	ErrNetworkFailure       = &AuthError{Kind: KindNetworkFailure}
	ErrBiometricUnavailable = &AuthError{Kind: KindBiometricUnavailable}
	ErrBiometricFailed      = &AuthError{Kind: KindBiometricFailed}
	ErrVaultEmpty           = &AuthError{Kind: KindVaultEmpty}
	ErrValidationFailed     = &AuthError{Kind: KindValidationFailed}
	ErrStorageFailure       = &AuthError{Kind: KindStorageFailure}
	ErrNotAuthenticated     = &AuthError{Kind: KindNotAuthenticated}
)

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, msg)
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// Silent reports a failure the user caused on purpose (a dismissed biometric
// prompt). Callers should not show it as an error.
func (e *AuthError) Silent() bool { return e.cancelled }

func newAuthError(kind ErrorKind, msg string, err error) *AuthError {
	return &AuthError{Kind: kind, Message: msg, Err: err}
}

func validationError(field, msg string) *AuthError {
	return &AuthError{Kind: KindValidationFailed, Field: field, Message: msg}
}

func storageError(msg string, err error) *AuthError {
	return newAuthError(KindStorageFailure, msg, err)
}

// backendError maps a transport error. Rejected credentials become
// InvalidCredentials, rejected input becomes ValidationFailed (on the
// backend's field, else field), anything else is a NetworkFailure. The
// backend's detail wins over fallback as the message.
func backendError(err error, fallback, field string) *AuthError {
	var apiErr *client.APIError
	msg := fallback
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			msg = apiErr.Detail
		}
		if apiErr.Field != "" {
			field = apiErr.Field
		}
	}

	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return newAuthError(KindInvalidCredentials, msg, err)
	case errors.Is(err, client.ErrValidation), errors.Is(err, client.ErrNotFound):
		return &AuthError{Kind: KindValidationFailed, Field: field, Message: msg, Err: err}
	default:
		if apiErr == nil || apiErr.Detail == "" {
			msg = "Failed to connect to server"
		}
		return newAuthError(KindNetworkFailure, msg, err)
	}
}
