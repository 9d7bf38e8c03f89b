package biometric

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/fleetauth/internal/client/vault"
	"github.com/dmitrijs2005/fleetauth/internal/common"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// PasscodeHashKey is the secure storage key holding the bcrypt hash.
const PasscodeHashKey = "fras_passcode_hash"

const (
	MinPasscodeLength = 4
	maxAttempts       = 3
)

var (
	ErrPasscodeTooShort = fmt.Errorf("passcode must be at least %d characters", MinPasscodeLength)
	ErrPasscodeTooLong  = fmt.Errorf("passcode must be at most %d bytes", common.MaxPasswordLength)
)

// test seams
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// PasscodeSensor stands in for a fingerprint or face sensor on a terminal.
// The "hardware" is an interactive stdin and the enrolled identity is a
// passcode whose bcrypt hash is kept in secure storage.
type PasscodeSensor struct {
	storage vault.SecureStorage
	out     io.Writer
	fd      int
	cost    int
}

func NewPasscodeSensor(storage vault.SecureStorage, out io.Writer) *PasscodeSensor {
	return &PasscodeSensor{
		storage: storage,
		out:     out,
		fd:      int(os.Stdin.Fd()),
		cost:    bcrypt.DefaultCost,
	}
}

func (s *PasscodeSensor) HasHardware(context.Context) (bool, error) {
	return isTerminal(s.fd), nil
}

func (s *PasscodeSensor) IsEnrolled(ctx context.Context) (bool, error) {
	_, err := s.storage.GetItem(ctx, PasscodeHashKey)
	if errors.Is(err, vault.ErrItemNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Enroll replaces the stored passcode.
func (s *PasscodeSensor) Enroll(ctx context.Context, passcode []byte) error {
	if len(passcode) < MinPasscodeLength {
		return ErrPasscodeTooShort
	}
	if len(passcode) > common.MaxPasswordLength {
		return ErrPasscodeTooLong
	}
	hash, err := bcrypt.GenerateFromPassword(passcode, s.cost)
	if err != nil {
		return fmt.Errorf("hash passcode: %w", err)
	}
	return s.storage.SetItem(ctx, PasscodeHashKey, string(hash))
}

// Authenticate asks for the passcode up to three times. An empty entry
// cancels.
func (s *PasscodeSensor) Authenticate(ctx context.Context, p Prompt) error {
	hash, err := s.storage.GetItem(ctx, PasscodeHashKey)
	if errors.Is(err, vault.ErrItemNotFound) {
		return ErrNotEnrolled
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, p.Message)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(s.out, "%s (empty to cancel): ", p.FallbackLabel)
		pc, err := readPassword(s.fd)
		fmt.Fprintln(s.out)
		if err != nil {
			return fmt.Errorf("read passcode: %w", err)
		}
		if len(pc) == 0 {
			return ErrCancelled
		}

		err = bcrypt.CompareHashAndPassword([]byte(hash), pc)
		common.WipeByteArray(pc)
		if err == nil {
			return nil
		}
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("compare passcode: %w", err)
		}
		if attempt < maxAttempts {
			fmt.Fprintln(s.out, "Passcode not recognized, try again.")
		}
	}
	return ErrNotRecognized
}
