// Package vault holds at most one username/password pair in platform secure
// storage. The pair is released to the caller only after a successful
// biometric check, which is enforced by the caller, not here.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fleetauth/internal/client/models"
	"github.com/dmitrijs2005/fleetauth/internal/common"
)

// CredentialKey is the secure storage key of the single vault slot.
const CredentialKey = "fras_biometric_credentials"

// Password is kept as bytes (base64 in JSON) so passwords that are not
// valid UTF-8 come back unchanged.
type entry struct {
	Username string `json:"username"`
	Password []byte `json:"password"`
}

type Vault struct {
	storage SecureStorage
}

func New(storage SecureStorage) *Vault {
	return &Vault{storage: storage}
}

// Save overwrites the slot.
func (v *Vault) Save(ctx context.Context, username string, password []byte) error {
	data, err := json.Marshal(entry{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("encode vault entry: %w", err)
	}
	defer common.WipeByteArray(data)

	return v.storage.SetItem(ctx, CredentialKey, string(data))
}

// Get returns the stored credential. ok is false, with no error, when the
// slot is empty. A slot that cannot be decoded is an error.
func (v *Vault) Get(ctx context.Context) (cred *models.VaultCredential, ok bool, err error) {
	raw, err := v.storage.GetItem(ctx, CredentialKey)
	if errors.Is(err, ErrItemNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, false, fmt.Errorf("decode vault entry: %w", err)
	}
	if e.Username == "" {
		return nil, false, fmt.Errorf("decode vault entry: empty username")
	}

	return &models.VaultCredential{Username: e.Username, Password: e.Password}, true, nil
}

func (v *Vault) Delete(ctx context.Context) error {
	return v.storage.DeleteItem(ctx, CredentialKey)
}

func (v *Vault) Exists(ctx context.Context) (bool, error) {
	_, err := v.storage.GetItem(ctx, CredentialKey)
	if errors.Is(err, ErrItemNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
