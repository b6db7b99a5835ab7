package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/yexiyue/actions/internal/errors"
)

// NowTimeFunc stamps CreatedAt on new users
var NowTimeFunc = time.Now

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu    sync.RWMutex
	users map[int64]User
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		users: make(map[int64]User),
	}
}

func (r *InMemoryRepo) CreateOrFind(_ context.Context, user *User) (*User, error) {
	if user == nil || user.ID <= 0 {
		return nil, fmt.Errorf("[InMemoryRepo CreateOrFind] user id is required: %w", apperrors.ErrInvalidRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if ok {
		return &existing, nil
	}

	stored := *user
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = NowTimeFunc().UTC()
	}
	r.users[stored.ID] = stored
	return &stored, nil
}

func (r *InMemoryRepo) GetByID(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("[InMemoryRepo GetByID] %d: %w", id, apperrors.ErrUserNotFound)
	}
	return &user, nil
}
