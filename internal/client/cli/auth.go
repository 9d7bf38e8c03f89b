package cli

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/dmitrijs2005/fleetauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var (
	errPasswordMismatch = errors.New("passwords do not match")
	errInvalidEmail     = errors.New("please enter a valid email address")
)

// Register prompts for username, optional email and password (twice) and
// creates the account. It does not sign in.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email (optional)", a.out)
	if err != nil {
		return err
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return errInvalidEmail
		}
	}

	password, err := a.readNewPassword("Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, username, password, email); err != nil {
		return err
	}

	printlnFn("Account created successfully! Please login.")
	return nil
}

// readNewPassword asks for a password and its confirmation.
func (a *App) readNewPassword(prompt string) ([]byte, error) {
	password, err := getPassword(prompt, a.out)
	if err != nil {
		return nil, err
	}
	confirm, err := getPassword("Confirm password", a.out)
	if err != nil {
		common.WipeByteArray(password)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if string(password) != string(confirm) {
		common.WipeByteArray(password)
		return nil, errPasswordMismatch
	}
	return password, nil
}

// Login prompts for credentials and signs in.
//
// The password is securely wiped before returning.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, username, password); err != nil {
		return err
	}

	printlnFn("Login successful")
	return nil
}

// BioLogin signs in with the credentials kept behind the biometric check.
func (a *App) BioLogin(ctx context.Context) error {
	if err := a.authService.LoginWithBiometrics(ctx); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Login successful, welcome back %s", a.authService.Session().User.Username))
	return nil
}

// Bio shows the biometric status, or turns it on or off.
//
// Enabling asks for the password of the signed-in user (or for a username
// too when nobody is signed in), since that is what gets stored.
func (a *App) Bio(ctx context.Context, args []string) error {
	if len(args) == 0 {
		state := "disabled"
		if a.authService.BiometricEnabled() {
			state = "enabled"
		}
		printlnFn("Biometric login is " + state)
		return nil
	}

	switch args[0] {
	case "on":
		var username string
		if sess := a.authService.Session(); sess.IsAuthenticated && sess.User != nil {
			username = sess.User.Username
		} else {
			var err error
			if username, err = getSimpleText(a.reader, "Enter username", a.out); err != nil {
				return err
			}
		}

		password, err := getPassword("Enter your password to enable biometric login", a.out)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(password)

		if err := a.authService.ToggleBiometrics(ctx, true, username, password); err != nil {
			return err
		}
		printlnFn("Biometric login enabled")
		return nil

	case "off":
		if err := a.authService.ToggleBiometrics(ctx, false, "", nil); err != nil {
			return err
		}
		printlnFn("Biometric login disabled")
		return nil

	default:
		printlnFn("Usage: bio [on|off]")
		return nil
	}
}

// Passcode sets the passcode the terminal sensor verifies.
func (a *App) Passcode(ctx context.Context) error {
	passcode, err := getPassword("Enter new passcode", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(passcode)

	confirm, err := getPassword("Confirm passcode", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(passcode) != string(confirm) {
		return errors.New("passcodes do not match")
	}

	if err := a.passcodes.Enroll(ctx, passcode); err != nil {
		return err
	}
	printlnFn("Passcode saved")
	return nil
}

// Logout signs out. Biometric login stays enabled.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}
