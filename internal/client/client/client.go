package client

import (
	"context"

	"github.com/dmitrijs2005/fleetauth/internal/client/models"
)

// Backend is the set of remote calls the auth core needs.
//
// Login and FetchProfile take the credentials or token explicitly and never
// touch the stored session. The remaining authenticated calls use the stored
// bearer token.
type Backend interface {
	Login(ctx context.Context, username string, password []byte) (string, error)
	FetchProfile(ctx context.Context, token string) (*models.UserProfile, error)
	Register(ctx context.Context, username string, password []byte, email string) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, resetToken string, newPassword []byte) error
	ChangePassword(ctx context.Context, currentPassword, newPassword []byte) error
	UpdateProfile(ctx context.Context, username, email string) (*models.UserProfile, error)
	Ping(ctx context.Context) error
}

// TokenSource yields the bearer token of the current session, or "" when
// there is none.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
