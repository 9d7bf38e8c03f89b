package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/fleetauth/internal/client/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", validationError("email", "bad email"))

	require.ErrorIs(t, err, ErrValidationFailed)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "email", ae.Field)
	assert.Equal(t, "email: bad email", ae.Error())
}

func TestAuthError_MessageFallsBackToKind(t *testing.T) {
	assert.Equal(t, "vault empty", (&AuthError{Kind: KindVaultEmpty}).Error())
	assert.Equal(t, "unknown", ErrorKind(0).String())
}

func TestBackendError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      ErrorKind
		msg       string
		field     string
		wantCause error
	}{
		{
			name: "rejected credentials with detail",
			err:  &client.APIError{Status: http.StatusUnauthorized, Detail: "Incorrect username or password", Err: client.ErrUnauthorized},
			kind: KindInvalidCredentials, msg: "Incorrect username or password", wantCause: client.ErrUnauthorized,
		},
		{
			name: "rejected credentials without detail",
			err:  &client.APIError{Status: http.StatusUnauthorized, Err: client.ErrUnauthorized},
			kind: KindInvalidCredentials, msg: "fallback",
		},
		{
			name: "validation uses backend field",
			err:  &client.APIError{Status: http.StatusBadRequest, Detail: "Email already registered", Field: "email", Err: client.ErrValidation},
			kind: KindValidationFailed, msg: "Email already registered", field: "email",
		},
		{
			name: "validation default field",
			err:  &client.APIError{Status: http.StatusConflict, Err: client.ErrValidation},
			kind: KindValidationFailed, msg: "fallback", field: "username",
		},
		{
			name: "not found is a validation failure",
			err:  &client.APIError{Status: http.StatusNotFound, Err: client.ErrNotFound},
			kind: KindValidationFailed, msg: "fallback", field: "username",
		},
		{
			name: "transport",
			err:  fmt.Errorf("%w: dial tcp: connection refused", client.ErrUnavailable),
			kind: KindNetworkFailure, msg: "Failed to connect to server", wantCause: client.ErrUnavailable,
		},
		{
			name: "5xx with detail",
			err:  &client.APIError{Status: http.StatusServiceUnavailable, Detail: "maintenance", Err: client.ErrUnavailable},
			kind: KindNetworkFailure, msg: "maintenance",
		},
		{
			name: "unexpected error",
			err:  errors.New("boom"),
			kind: KindNetworkFailure, msg: "Failed to connect to server",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backendError(tt.err, "fallback", "username")
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.msg, got.Message)
			if tt.field != "" {
				assert.Equal(t, tt.field, got.Field)
			}
			if tt.wantCause != nil {
				assert.ErrorIs(t, got, tt.wantCause)
			}
			assert.False(t, got.Silent())
		})
	}
}
