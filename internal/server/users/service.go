package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/fleetauth/internal/common"
	"github.com/dmitrijs2005/fleetauth/internal/server/auth"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo                        Repository
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	cost                        int
}

type Option func(*Service)

// WithHashCost overrides the bcrypt cost, tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(repo Repository, jwtSecret []byte, accessTokenValidityDuration time.Duration, opts ...Option) *Service {
	s := &Service{
		repo:                        repo,
		jwtSecret:                   jwtSecret,
		accessTokenValidityDuration: accessTokenValidityDuration,
		cost:                        bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates a user with the default role. email may be empty.
func (s *Service) Register(ctx context.Context, username, password, email string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, invalid("username", "Username is required")
	}
	if err := ValidatePassword("password", password); err != nil {
		return nil, err
	}
	if err := checkEmail(email, false); err != nil {
		return nil, err
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	return s.create(ctx, &User{Username: username, Email: email, Role: DefaultRole, PasswordHash: hash})
}

func (s *Service) create(ctx context.Context, u *User) (*User, error) {
	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, uniqueError(err)
	}
	return created, nil
}

// Authenticate checks the password and returns a signed access token.
// Unknown users and wrong passwords both yield common.ErrorUnauthorized.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// UserIDFromToken resolves a bearer token to the id of an existing user.
func (s *Service) UserIDFromToken(ctx context.Context, token string) (int64, error) {
	id, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		return 0, err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return 0, common.ErrInvalidToken
	}
	return id, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(email)
	if err := checkEmail(email, true); err != nil {
		return nil, err
	}
	return s.repo.GetByEmail(ctx, email)
}

// UpdateProfile replaces username and email. An empty email clears it.
func (s *Service) UpdateProfile(ctx context.Context, id int64, username, email string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, invalid("username", "Username is required")
	}
	if err := checkEmail(email, false); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Username = username
	user.Email = email

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, uniqueError(err)
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if current == "" {
		return invalid("current_password", "Current password is required")
	}
	if err := ValidatePassword("new_password", next); err != nil {
		return err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(current)) != nil {
		return invalid("current_password", "Incorrect current password")
	}

	return s.setPassword(ctx, user, next)
}

// ResetPassword sets a new password without the current one; the caller has
// already proven ownership with a reset token.
func (s *Service) ResetPassword(ctx context.Context, id int64, next string) error {
	if err := ValidatePassword("new_password", next); err != nil {
		return err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, user, next)
}

func (s *Service) setPassword(ctx context.Context, user *User, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.repo.Update(ctx, user)
}

func (s *Service) hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// ValidatePassword applies the length rules, reporting field on failure.
func ValidatePassword(field, password string) error {
	if password == "" {
		return invalid(field, "Password is required")
	}
	if len(password) < common.MinPasswordLength {
		return invalid(field, fmt.Sprintf("Password must be at least %d characters", common.MinPasswordLength))
	}
	if len(password) > common.MaxPasswordLength {
		return invalid(field, fmt.Sprintf("Password must be at most %d bytes", common.MaxPasswordLength))
	}
	return nil
}

func checkEmail(email string, required bool) error {
	if email == "" {
		if required {
			return invalid("email", "Email is required")
		}
		return nil
	}
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
		return invalid("email", "Invalid email address")
	}
	return nil
}

func uniqueError(err error) error {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return invalid("username", "Username already registered")
	case errors.Is(err, ErrEmailTaken):
		return invalid("email", "Email already registered")
	default:
		return err
	}
}
