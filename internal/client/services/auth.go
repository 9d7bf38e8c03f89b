// Package services contains application services for the fleetauth client.
// This file defines the session controller: the auth state machine that
// reconciles the backend, the persisted session and the biometric vault.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dmitrijs2005/fleetauth/internal/client/biometric"
	"github.com/dmitrijs2005/fleetauth/internal/client/client"
	"github.com/dmitrijs2005/fleetauth/internal/client/models"
	"github.com/dmitrijs2005/fleetauth/internal/logging"
)

// SessionStore persists the token, the cached profile and the biometric flag.
// Absent values read as zero values without an error.
type SessionStore interface {
	Token(ctx context.Context) (string, error)
	User(ctx context.Context) (*models.UserProfile, error)
	BiometricEnabled(ctx context.Context) (bool, error)
	SaveSession(ctx context.Context, token string, user *models.UserProfile) error
	SaveUser(ctx context.Context, user *models.UserProfile) error
	ClearSession(ctx context.Context) error
	SetBiometricEnabled(ctx context.Context, enabled bool) error
}

// CredentialVault is the single biometric-gated credential slot.
type CredentialVault interface {
	Save(ctx context.Context, username string, password []byte) error
	Get(ctx context.Context) (*models.VaultCredential, bool, error)
	Delete(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
}

type BiometricGate interface {
	IsAvailable(ctx context.Context) bool
	Verify(ctx context.Context) error
}

// AuthService is what the UI layer drives.
//
// Every operation returns nil or an *AuthError. Operations are not
// serialized against each other; callers must not overlap user-triggered
// actions.
type AuthService interface {
	RestoreSession(ctx context.Context)
	Login(ctx context.Context, username string, password []byte) error
	LoginWithBiometrics(ctx context.Context) error
	ToggleBiometrics(ctx context.Context, enable bool, username string, password []byte) error
	Register(ctx context.Context, username string, password []byte, email string) error
	Logout(ctx context.Context) error
	UpdateUser(ctx context.Context, profile *models.UserProfile) error
	HandleUnauthorized(ctx context.Context)

	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, resetToken string, newPassword []byte) error
	ChangePassword(ctx context.Context, currentPassword, newPassword []byte) error
	UpdateProfile(ctx context.Context, username, email string) error

	Session() models.Session
	State() models.State
	BiometricEnabled() bool
}

// SessionController is the AuthService implementation.
type SessionController struct {
	backend client.Backend
	store   SessionStore
	vault   CredentialVault
	gate    BiometricGate
	logger  logging.Logger

	mu               sync.RWMutex
	state            models.State
	session          models.Session
	biometricEnabled bool
}

var _ AuthService = (*SessionController)(nil)

// NewSessionController returns a controller in StateUnknown. Call
// RestoreSession once before use.
func NewSessionController(backend client.Backend, store SessionStore, vault CredentialVault, gate BiometricGate, logger logging.Logger) *SessionController {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SessionController{
		backend: backend,
		store:   store,
		vault:   vault,
		gate:    gate,
		logger:  logger,
	}
}

// RestoreSession loads the persisted session without any network call.
// Token and profile must both be present to restore; read errors are logged
// and leave the controller unauthenticated. A biometric flag with no vault
// entry behind it reads as disabled.
func (c *SessionController) RestoreSession(ctx context.Context) {
	var sess models.Session

	token, tokenErr := c.store.Token(ctx)
	if tokenErr != nil {
		c.logger.Warn(ctx, "restore session: read token", "error", tokenErr)
	}
	user, userErr := c.store.User(ctx)
	if userErr != nil {
		c.logger.Warn(ctx, "restore session: read user", "error", userErr)
	}
	if tokenErr == nil && userErr == nil && token != "" && user != nil {
		sess = models.Session{Token: token, User: user, IsAuthenticated: true}
	}

	bio, err := c.store.BiometricEnabled(ctx)
	if err != nil {
		c.logger.Warn(ctx, "restore session: read biometric flag", "error", err)
		bio = false
	}
	if bio {
		exists, err := c.vault.Exists(ctx)
		if err != nil {
			c.logger.Warn(ctx, "restore session: read vault", "error", err)
		}
		if !exists {
			c.logger.Info(ctx, "biometric flag set without stored credentials, treating as disabled")
			bio = false
		}
	}

	c.mu.Lock()
	c.session = sess
	c.biometricEnabled = bio
	if sess.IsAuthenticated {
		c.state = models.StateAuthenticated
	} else {
		c.state = models.StateUnauthenticated
	}
	c.mu.Unlock()

	if sess.IsAuthenticated {
		c.logger.Info(ctx, "session restored", "user_id", user.ID)
	}
}

// Login exchanges the credentials for a token, fetches the profile with it
// and persists both together. Nothing is written unless both calls succeed.
func (c *SessionController) Login(ctx context.Context, username string, password []byte) error {
	if strings.TrimSpace(username) == "" {
		return validationError("username", "Please enter both username and password")
	}
	if len(password) == 0 {
		return validationError("password", "Please enter both username and password")
	}

	token, err := c.backend.Login(ctx, username, password)
	if err != nil {
		c.logger.Info(ctx, "login rejected", "username", username, "error", err)
		return backendError(err, "Invalid credentials", "username")
	}

	user, err := c.backend.FetchProfile(ctx, token)
	if err != nil {
		c.logger.Info(ctx, "profile fetch failed", "username", username, "error", err)
		return backendError(err, "Invalid credentials", "username")
	}
	if user == nil {
		return newAuthError(KindNetworkFailure, "Empty profile returned by server", nil)
	}

	if err := c.store.SaveSession(ctx, token, user); err != nil {
		c.logger.Error(ctx, "persist session", "error", err)
		return storageError("Could not save session", err)
	}

	c.mu.Lock()
	c.session = models.Session{Token: token, User: user.Clone(), IsAuthenticated: true}
	c.state = models.StateAuthenticated
	c.mu.Unlock()

	c.logger.Info(ctx, "logged in", "user_id", user.ID)
	return nil
}

// LoginWithBiometrics verifies the user, then logs in with the vault
// credentials. Verification runs on every call.
func (c *SessionController) LoginWithBiometrics(ctx context.Context) error {
	if !c.gate.IsAvailable(ctx) {
		return newAuthError(KindBiometricUnavailable, "Biometrics not available on this device", nil)
	}
	if err := c.verify(ctx); err != nil {
		return err
	}

	cred, ok, err := c.vault.Get(ctx)
	if err != nil {
		c.logger.Error(ctx, "read vault", "error", err)
		return storageError("Could not read stored credentials", err)
	}
	if !ok {
		c.mu.Lock()
		c.biometricEnabled = false
		c.mu.Unlock()
		return newAuthError(KindVaultEmpty, "No stored credentials found", nil)
	}
	defer cred.Wipe()

	return c.Login(ctx, cred.Username, cred.Password)
}

// ToggleBiometrics enables or disables biometric login.
//
// Enabling verifies the user first and writes the vault before the flag. If
// the flag cannot be written the previous vault entry is put back.
// Disabling deletes the vault entry before clearing the flag and keeps the
// flag when the delete fails.
func (c *SessionController) ToggleBiometrics(ctx context.Context, enable bool, username string, password []byte) error {
	if enable {
		return c.enableBiometrics(ctx, username, password)
	}
	return c.disableBiometrics(ctx)
}

func (c *SessionController) enableBiometrics(ctx context.Context, username string, password []byte) error {
	if strings.TrimSpace(username) == "" {
		return validationError("username", "Username is required")
	}
	if len(password) == 0 {
		return validationError("password", "Password is required")
	}
	if !c.gate.IsAvailable(ctx) {
		return newAuthError(KindBiometricUnavailable, "Biometrics not available on this device", nil)
	}
	if err := c.verify(ctx); err != nil {
		return err
	}

	prior, hadPrior, err := c.vault.Get(ctx)
	if err != nil {
		// Without the prior entry a failed enable could not be rolled back.
		c.logger.Error(ctx, "read previous vault entry", "error", err)
		return storageError("Error toggling biometrics", err)
	}
	defer prior.Wipe()
	if hadPrior && prior.Username != username {
		c.logger.Info(ctx, "replacing stored biometric credentials", "previous", prior.Username, "username", username)
	}

	if err := c.vault.Save(ctx, username, password); err != nil {
		c.logger.Error(ctx, "save vault entry", "error", err)
		return storageError("Error toggling biometrics", err)
	}

	if err := c.store.SetBiometricEnabled(ctx, true); err != nil {
		c.logger.Error(ctx, "save biometric flag", "error", err)
		c.restoreVault(ctx, prior, hadPrior)
		return storageError("Error toggling biometrics", err)
	}

	c.mu.Lock()
	c.biometricEnabled = true
	c.mu.Unlock()

	c.logger.Info(ctx, "biometric login enabled", "username", username)
	return nil
}

// restoreVault puts the vault back the way it was before a failed enable.
func (c *SessionController) restoreVault(ctx context.Context, prior *models.VaultCredential, hadPrior bool) {
	var err error
	if hadPrior {
		err = c.vault.Save(ctx, prior.Username, prior.Password)
	} else {
		err = c.vault.Delete(ctx)
	}
	if err != nil {
		c.logger.Error(ctx, "roll back vault entry", "error", err)
	}
}

func (c *SessionController) disableBiometrics(ctx context.Context) error {
	if err := c.vault.Delete(ctx); err != nil {
		c.logger.Error(ctx, "delete vault entry", "error", err)
		return storageError("Error toggling biometrics", err)
	}

	// The vault is already empty, so a stale "true" reads as disabled even
	// when the flag write fails.
	c.mu.Lock()
	c.biometricEnabled = false
	c.mu.Unlock()

	if err := c.store.SetBiometricEnabled(ctx, false); err != nil {
		c.logger.Error(ctx, "clear biometric flag", "error", err)
		return storageError("Error toggling biometrics", err)
	}

	c.logger.Info(ctx, "biometric login disabled")
	return nil
}

func (c *SessionController) verify(ctx context.Context) error {
	err := c.gate.Verify(ctx)
	if err == nil {
		return nil
	}
	ae := newAuthError(KindBiometricFailed, "Authentication failed", err)
	ae.cancelled = errors.Is(err, biometric.ErrCancelled)
	if !ae.cancelled {
		c.logger.Info(ctx, "biometric verification failed", "error", err)
	}
	return ae
}

// Register creates an account on the backend. The session is not touched.
func (c *SessionController) Register(ctx context.Context, username string, password []byte, email string) error {
	if strings.TrimSpace(username) == "" {
		return validationError("username", "Please fill in all fields")
	}
	if len(password) == 0 {
		return validationError("password", "Please fill in all fields")
	}

	if err := c.backend.Register(ctx, username, password, strings.TrimSpace(email)); err != nil {
		c.logger.Info(ctx, "registration failed", "username", username, "error", err)
		return backendError(err, "Registration failed. Username or email might be taken.", "username")
	}

	c.logger.Info(ctx, "registered", "username", username)
	return nil
}

// Logout forgets the token and the cached profile. The vault and the
// biometric flag stay, so biometric login keeps working afterwards.
// In-memory state is cleared even when the store fails.
func (c *SessionController) Logout(ctx context.Context) error {
	err := c.store.ClearSession(ctx)
	c.clearSession()

	if err != nil {
		c.logger.Error(ctx, "clear stored session", "error", err)
		return storageError("Could not clear stored session", err)
	}
	c.logger.Info(ctx, "logged out")
	return nil
}

// HandleUnauthorized is called by the transport when the backend rejects the
// stored token.
func (c *SessionController) HandleUnauthorized(ctx context.Context) {
	c.logger.Warn(ctx, "backend rejected session token, logging out")
	if err := c.Logout(ctx); err != nil {
		c.logger.Error(ctx, "logout after unauthorized response", "error", err)
	}
}

func (c *SessionController) clearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = models.Session{}
	c.state = models.StateUnauthenticated
}

// UpdateUser replaces the cached profile as a whole, on disk first.
func (c *SessionController) UpdateUser(ctx context.Context, profile *models.UserProfile) error {
	if profile == nil {
		return validationError("user", "Profile is required")
	}
	if err := c.requireSession(); err != nil {
		return err
	}

	if err := c.store.SaveUser(ctx, profile); err != nil {
		c.logger.Error(ctx, "persist user", "error", err)
		return storageError("Could not save profile", err)
	}

	c.mu.Lock()
	if c.session.IsAuthenticated {
		c.session.User = profile.Clone()
	}
	c.mu.Unlock()
	return nil
}

func (c *SessionController) requireSession() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.session.IsAuthenticated {
		return newAuthError(KindNotAuthenticated, "Please log in first", nil)
	}
	return nil
}

// Session returns a copy of the current session.
func (c *SessionController) Session() models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.session
	s.User = c.session.User.Clone()
	return s
}

func (c *SessionController) State() models.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *SessionController) BiometricEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.biometricEnabled
}
