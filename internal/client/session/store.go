// Package session persists the durable half of the auth session: the bearer
// token, the cached user profile and the biometric-enabled flag.
//
// The three values live in separate rows of the metadata table. The token and
// the profile are always written and cleared together in one transaction;
// the flag is written on its own.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/fleetauth/internal/client/models"
	"github.com/dmitrijs2005/fleetauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fleetauth/internal/dbx"
)

const (
	KeyToken            = "authToken"
	KeyUser             = "user"
	KeyBiometricEnabled = "biometricEnabled"
)

// Store is backed by an *sql.DB that has the metadata table migrated.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

// Token returns the stored bearer token, or "" if there is none.
func (s *Store) Token(ctx context.Context) (string, error) {
	v, err := s.repo().Get(ctx, KeyToken)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// User returns the cached profile, or nil if there is none. A stored JSON
// null also reads as none.
func (s *Store) User(ctx context.Context) (*models.UserProfile, error) {
	v, err := s.repo().Get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}

	var u *models.UserProfile
	if err := json.Unmarshal(v, &u); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}
	return u, nil
}

// BiometricEnabled reports whether the flag holds "true". Anything else,
// including a missing row, reads as false.
func (s *Store) BiometricEnabled(ctx context.Context) (bool, error) {
	v, err := s.repo().Get(ctx, KeyBiometricEnabled)
	if err != nil {
		return false, err
	}
	return string(v) == "true", nil
}

// SaveSession writes token and user in one transaction.
func (s *Store) SaveSession(ctx context.Context, token string, user *models.UserProfile) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, KeyToken, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, KeyUser, data)
	})
}

// SaveUser replaces the cached profile without touching the token.
func (s *Store) SaveUser(ctx context.Context, user *models.UserProfile) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.repo().Set(ctx, KeyUser, data)
}

// ClearSession removes token and user in one transaction. The biometric flag
// is left alone.
func (s *Store) ClearSession(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, KeyToken); err != nil {
			return err
		}
		return repo.Delete(ctx, KeyUser)
	})
}

func (s *Store) SetBiometricEnabled(ctx context.Context, enabled bool) error {
	v := "false"
	if enabled {
		v = "true"
	}
	return s.repo().Set(ctx, KeyBiometricEnabled, []byte(v))
}
