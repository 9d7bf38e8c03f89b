// Package common contains shared constants and sentinel errors used across
// the fleetauth client and the development backend.
package common

const (
	// AuthorizationHeaderName carries the bearer token on authenticated requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the opaque access token in the Authorization header.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName correlates a client request with backend logs.
	RequestIDHeaderName = "X-Request-ID"

	// MinPasswordLength is the shortest password accepted for a new or reset password.
	MinPasswordLength = 6

	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
)
