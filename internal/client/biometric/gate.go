// Package biometric answers two questions for the session controller: can
// the device verify the user right now, and did the user just pass that
// verification.
package biometric

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fleetauth/internal/logging"
)

var (
	// ErrCancelled means the user dismissed the prompt.
	ErrCancelled = errors.New("biometric: cancelled by user")
	// ErrNotRecognized means the user was not recognized.
	ErrNotRecognized = errors.New("biometric: not recognized")
	// ErrNotEnrolled means no biometric (or fallback passcode) is set up.
	ErrNotEnrolled = errors.New("biometric: not enrolled")
)

// Prompt is what the user is shown while the sensor waits.
type Prompt struct {
	Message       string
	FallbackLabel string
}

// DefaultPrompt is used for the sign-in and enable flows.
var DefaultPrompt = Prompt{
	Message:       "Authenticate to sign in",
	FallbackLabel: "Use Passcode",
}

// Sensor is the device capability. Authenticate runs one interactive check
// and returns nil, ErrCancelled, ErrNotRecognized, or some other failure.
type Sensor interface {
	HasHardware(ctx context.Context) (bool, error)
	IsEnrolled(ctx context.Context) (bool, error)
	Authenticate(ctx context.Context, p Prompt) error
}

type Gate struct {
	sensor Sensor
	prompt Prompt
	logger logging.Logger
}

func NewGate(sensor Sensor, logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Gate{sensor: sensor, prompt: DefaultPrompt, logger: logger}
}

// IsAvailable is true only when the sensor has hardware and an enrolled
// identity. Sensor errors are logged and read as unavailable.
func (g *Gate) IsAvailable(ctx context.Context) bool {
	hw, err := g.sensor.HasHardware(ctx)
	if err != nil {
		g.logger.Warn(ctx, "biometric hardware check failed", "error", err)
		return false
	}
	if !hw {
		return false
	}

	enrolled, err := g.sensor.IsEnrolled(ctx)
	if err != nil {
		g.logger.Warn(ctx, "biometric enrollment check failed", "error", err)
		return false
	}
	return enrolled
}

// Verify runs a single interactive check. Nothing is cached between calls.
func (g *Gate) Verify(ctx context.Context) error {
	err := g.sensor.Authenticate(ctx, g.prompt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCancelled), errors.Is(err, ErrNotRecognized), errors.Is(err, ErrNotEnrolled):
		return err
	default:
		return fmt.Errorf("biometric verification: %w", err)
	}
}
