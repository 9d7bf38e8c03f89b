package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ErrItemNotFound is returned by SecureStorage.GetItem for a missing key.
var ErrItemNotFound = errors.New("secure storage: item not found")

// SecureStorage is the platform-provided encrypted key/value store.
// DeleteItem on a missing key is not an error.
type SecureStorage interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	DeleteItem(ctx context.Context, key string) error
}

// KeyringStorage keeps items in the OS keyring (Secret Service, macOS
// Keychain, Windows Credential Manager) under a single service name.
type KeyringStorage struct {
	service string
}

func NewKeyringStorage(service string) *KeyringStorage {
	return &KeyringStorage{service: service}
}

func (k *KeyringStorage) GetItem(_ context.Context, key string) (string, error) {
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrItemNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", key, err)
	}
	return v, nil
}

func (k *KeyringStorage) SetItem(_ context.Context, key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("keyring set %s: %w", key, err)
	}
	return nil
}

func (k *KeyringStorage) DeleteItem(_ context.Context, key string) error {
	err := keyring.Delete(k.service, key)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("keyring delete %s: %w", key, err)
}
