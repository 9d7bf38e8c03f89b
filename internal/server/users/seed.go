package users

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fleetauth/internal/common"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Users []struct {
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		Email     string `yaml:"email"`
		Role      string `yaml:"role"`
		AccountID *int64 `yaml:"account_id"`
	} `yaml:"users"`
}

// SeedFromFile creates the users listed in a YAML file. Entries without a
// username or password are skipped, as are usernames that already exist.
func (s *Service) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	created := 0
	for _, u := range sf.Users {
		if u.Username == "" || u.Password == "" {
			continue
		}
		if _, err := s.repo.GetByUsername(ctx, u.Username); err == nil {
			continue
		} else if !errors.Is(err, common.ErrorNotFound) {
			return created, err
		}

		hash, err := s.hash(u.Password)
		if err != nil {
			return created, err
		}
		role := u.Role
		if role == "" {
			role = DefaultRole
		}
		if _, err := s.create(ctx, &User{
			Username:     u.Username,
			Email:        u.Email,
			Role:         role,
			AccountID:    u.AccountID,
			PasswordHash: hash,
		}); err != nil {
			return created, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		created++
	}
	return created, nil
}
