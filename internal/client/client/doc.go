// Package client contains the client-side transport and local database
// bootstrap of the fleetauth core.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic backend contract (see the Backend interface):
//     token exchange, profile fetch, registration, password reset, password
//     change and profile update.
//  2. A REST implementation (see HTTPClient) that attaches the bearer token
//     from a TokenSource to authenticated requests and reports a 401 on such
//     requests to an unauthorized handler, which clears the session.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Backend failures are returned as *APIError values wrapping one of the
// sentinel errors ErrUnauthorized, ErrValidation, ErrNotFound or
// ErrUnavailable; match them with errors.Is and read the backend's detail
// message with errors.As.
package client
