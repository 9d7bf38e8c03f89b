// Package resets keeps single-use password reset tokens. A token maps to a
// user id until it is consumed or its TTL elapses.
package resets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrTokenNotFound = errors.New("reset token not found or expired")

type Store interface {
	Save(ctx context.Context, token string, userID int64, ttl time.Duration) error
	// Consume returns the user id and removes the token. Unknown, used and
	// expired tokens all yield ErrTokenNotFound.
	Consume(ctx context.Context, token string) (int64, error)
}

func NewToken() string {
	return uuid.NewString()
}
