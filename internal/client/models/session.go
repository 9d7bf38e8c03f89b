// Package models defines client-side data models for the fleetauth core.
package models

// State is the position of the session state machine.
type State int

const (
	// StateUnknown is the startup state before RestoreSession has run.
	StateUnknown State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// UserProfile is the backend's view of the signed-in user. It is replaced as
// a whole on update; there is no per-field merge.
type UserProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AccountID *int64 `json:"account_id"`
}

// Clone returns a deep copy so callers cannot mutate controller state.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	if u.AccountID != nil {
		id := *u.AccountID
		c.AccountID = &id
	}
	return &c
}

// Session is the current authenticated identity.
// IsAuthenticated is true only when Token and User were set together.
type Session struct {
	Token           string
	User            *UserProfile
	IsAuthenticated bool
}

// VaultCredential is the username/password pair kept in the credential vault.
type VaultCredential struct {
	Username string `json:"username"`
	Password []byte `json:"password"`
}

// Wipe zeroes the password in place.
func (c *VaultCredential) Wipe() {
	if c == nil {
		return
	}
	for i := range c.Password {
		c.Password[i] = 0
	}
}
