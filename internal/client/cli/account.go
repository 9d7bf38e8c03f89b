package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fleetauth/internal/common"
)

// WhoAmI prints the cached profile of the signed-in user.
func (a *App) WhoAmI(context.Context) error {
	sess := a.authService.Session()
	if !sess.IsAuthenticated || sess.User == nil {
		printlnFn("Not logged in")
		return nil
	}

	u := sess.User
	printlnFn(fmt.Sprintf("ID:       %d", u.ID))
	printlnFn(fmt.Sprintf("Username: %s", u.Username))
	printlnFn(fmt.Sprintf("Email:    %s", u.Email))
	printlnFn(fmt.Sprintf("Role:     %s", u.Role))
	if u.AccountID != nil {
		printlnFn(fmt.Sprintf("Account:  %d", *u.AccountID))
	} else {
		printlnFn("Account:  N/A")
	}
	return nil
}

// Profile updates username and email. Empty input keeps the current value.
func (a *App) Profile(ctx context.Context) error {
	sess := a.authService.Session()
	if !sess.IsAuthenticated || sess.User == nil {
		printlnFn("Not logged in")
		return nil
	}

	username, err := getSimpleText(a.reader, fmt.Sprintf("Username [%s]", sess.User.Username), a.out)
	if err != nil {
		return err
	}
	if username == "" {
		username = sess.User.Username
	}
	email, err := getSimpleText(a.reader, fmt.Sprintf("Email [%s]", sess.User.Email), a.out)
	if err != nil {
		return err
	}
	if email == "" {
		email = sess.User.Email
	}

	if err := a.authService.UpdateProfile(ctx, username, email); err != nil {
		return err
	}
	printlnFn("Profile updated successfully")
	return nil
}

// Passwd changes the password of the signed-in user.
func (a *App) Passwd(ctx context.Context) error {
	current, err := getPassword("Current password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := a.readNewPassword("New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	if err := a.authService.ChangePassword(ctx, current, next); err != nil {
		return err
	}
	printlnFn("Password updated successfully")
	if a.authService.BiometricEnabled() {
		printlnFn("Run 'bio on' again so biometric login uses the new password.")
	}
	return nil
}

// Forgot requests a reset token. The development backend returns it
// directly, so it is printed for use with 'reset'.
func (a *App) Forgot(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter your email address", a.out)
	if err != nil {
		return err
	}

	token, err := a.authService.RequestPasswordReset(ctx, email)
	if err != nil {
		return err
	}
	printlnFn("Reset token: " + token)
	printlnFn("Use 'reset' to choose a new password.")
	return nil
}

// Reset sets a new password using a reset token.
func (a *App) Reset(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter reset token", a.out)
	if err != nil {
		return err
	}

	password, err := a.readNewPassword("New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.ConfirmPasswordReset(ctx, token, password); err != nil {
		return err
	}
	printlnFn("Your password has been reset successfully.")
	return nil
}
