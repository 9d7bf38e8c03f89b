package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fleetauth/internal/client/client"
	"github.com/dmitrijs2005/fleetauth/internal/common"
)

var (
	tooShortMsg    = fmt.Sprintf("Password must be at least %d characters", common.MinPasswordLength)
	newTooShortMsg = fmt.Sprintf("New password must be at least %d characters", common.MinPasswordLength)
)

// RequestPasswordReset asks the backend for a reset token for the account
// registered under email.
func (c *SessionController) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", validationError("email", "Please enter your email address")
	}

	token, err := c.backend.RequestPasswordReset(ctx, email)
	if err != nil {
		return "", backendError(err, "Failed to request password reset", "email")
	}
	return token, nil
}

func (c *SessionController) ConfirmPasswordReset(ctx context.Context, resetToken string, newPassword []byte) error {
	resetToken = strings.TrimSpace(resetToken)
	if resetToken == "" {
		return validationError("token", "Please fill in all fields")
	}
	if len(newPassword) == 0 {
		return validationError("new_password", "Please fill in all fields")
	}
	if passwordTooShort(newPassword) {
		return validationError("new_password", tooShortMsg)
	}

	if err := c.backend.ConfirmPasswordReset(ctx, resetToken, newPassword); err != nil {
		return backendError(err, "Failed to reset password", "token")
	}
	c.logger.Info(ctx, "password reset confirmed")
	return nil
}

// ChangePassword changes the password of the signed-in user. The vault is
// not updated; re-enable biometrics to store the new password.
func (c *SessionController) ChangePassword(ctx context.Context, currentPassword, newPassword []byte) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	if len(currentPassword) == 0 {
		return validationError("current_password", "Please fill in all fields")
	}
	if len(newPassword) == 0 {
		return validationError("new_password", "Please fill in all fields")
	}
	if passwordTooShort(newPassword) {
		return validationError("new_password", newTooShortMsg)
	}

	if err := c.backend.ChangePassword(ctx, currentPassword, newPassword); err != nil {
		return sessionBackendError(err, "Failed to update password", "current_password")
	}
	c.logger.Info(ctx, "password changed")
	return nil
}

// UpdateProfile sends the new username and email and caches the profile the
// backend returns.
func (c *SessionController) UpdateProfile(ctx context.Context, username, email string) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return validationError("username", "Username cannot be empty")
	}

	user, err := c.backend.UpdateProfile(ctx, username, strings.TrimSpace(email))
	if err != nil {
		return sessionBackendError(err, "Failed to update profile", "username")
	}
	return c.UpdateUser(ctx, user)
}

// sessionBackendError is backendError for calls made with the stored token,
// where a 401 means the session is gone rather than a bad password.
func sessionBackendError(err error, fallback, field string) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return newAuthError(KindNotAuthenticated, "Session expired, please log in again", err)
	}
	return backendError(err, fallback, field)
}

// passwordTooShort reports whether pw is shorter than the backend minimum.
func passwordTooShort(pw []byte) bool {
	return len(pw) < common.MinPasswordLength
}
