package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fleetauth/internal/common"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]*User)}
}

func (r *MemoryRepository) Create(_ context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(0, user.Username, user.Email); err != nil {
		return nil, err
	}

	r.nextID++
	stored := user.clone()
	stored.ID = r.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.byID[stored.ID] = stored

	return stored.clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; !ok {
		return common.ErrorNotFound
	}
	if err := r.checkUnique(user.ID, user.Username, user.Email); err != nil {
		return err
	}
	r.byID[user.ID] = user.clone()
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u.clone(), nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*User, error) {
	return r.find(func(u *User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	if email == "" {
		return nil, common.ErrorNotFound
	}
	return r.find(func(u *User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *MemoryRepository) find(match func(*User) bool) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if match(u) {
			return u.clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}

// checkUnique must be called with mu held. self is skipped so an update may
// keep its own username and email.
func (r *MemoryRepository) checkUnique(self int64, username, email string) error {
	for id, u := range r.byID {
		if id == self {
			continue
		}
		if strings.EqualFold(u.Username, username) {
			return ErrUsernameTaken
		}
		if email != "" && strings.EqualFold(u.Email, email) {
			return ErrEmailTaken
		}
	}
	return nil
}
