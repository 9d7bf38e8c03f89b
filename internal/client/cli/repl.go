package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fleetauth/internal/client/services"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	BioLogin(ctx context.Context) error
	Bio(ctx context.Context, args []string) error
	Passcode(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context) error
	Passwd(ctx context.Context) error
	Forgot(ctx context.Context) error
	Reset(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the FRAS CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is done, or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - help           show available commands
//	  - register       create an account
//	  - login          sign in with username and password
//	  - biologin       sign in with biometrics
//	  - forgot         request a password reset token
//	  - reset          set a new password with a reset token
//	  - bio [on|off]   show or toggle biometric login
//	  - passcode       set the passcode used as the biometric fallback
//	  - exit | quit    leave the program
//
//	Logged in, additionally:
//	  - whoami         show the cached profile
//	  - profile        change username and email
//	  - passwd         change the password
//	  - logout         sign out (biometric login stays enabled)
//
// Errors returned by command handlers are printed; a cancelled biometric
// prompt is reported quietly.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("fras %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, profile, passwd, bio [on|off], passcode, logout, exit")
			} else {
				printlnFn("Available commands: register, login, biologin, forgot, reset, bio [on|off], passcode, exit")
			}

		case "register":
			report(a.Register(ctx))

		case "login":
			report(a.Login(ctx))

		case "biologin":
			report(a.BioLogin(ctx))

		case "bio":
			report(a.Bio(ctx, args))

		case "passcode":
			report(a.Passcode(ctx))

		case "whoami":
			report(a.WhoAmI(ctx))

		case "profile":
			report(a.Profile(ctx))

		case "passwd":
			report(a.Passwd(ctx))

		case "forgot":
			report(a.Forgot(ctx))

		case "reset":
			report(a.Reset(ctx))

		case "logout":
			report(a.Logout(ctx))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

// report prints a command failure for the user.
func report(err error) {
	if err == nil {
		return
	}
	var ae *services.AuthError
	if errors.As(err, &ae) && ae.Silent() {
		printlnFn("Cancelled.")
		return
	}
	printlnFn("Error:", err.Error())
}
