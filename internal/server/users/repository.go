package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fleetauth/internal/common"
)

var (
	ErrUsernameTaken = fmt.Errorf("username %w", common.ErrorAlreadyExists)
	ErrEmailTaken    = fmt.Errorf("email %w", common.ErrorAlreadyExists)
)

// Repository stores users. Lookups by username and email are
// case-insensitive and both must be unique; a missing user is common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
