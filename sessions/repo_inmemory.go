package sessions

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/yexiyue/actions/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu      sync.RWMutex
	records map[int64]Record // userID -> record
	nextID  int64
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		records: make(map[int64]Record),
	}
}

func (r *InMemoryRepo) UpsertByUserID(_ context.Context, record *Record) (*Record, error) {
	if record == nil || record.UserID <= 0 {
		return nil, fmt.Errorf("[InMemoryRepo UpsertByUserID] user id is required: %w", apperrors.ErrInvalidRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *record
	if existing, ok := r.records[record.UserID]; ok {
		stored.ID = existing.ID
	} else {
		r.nextID++
		stored.ID = r.nextID
	}
	r.records[stored.UserID] = stored
	return &stored, nil
}

func (r *InMemoryRepo) FindByUserID(_ context.Context, userID int64) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[userID]
	if !ok {
		return nil, fmt.Errorf("[InMemoryRepo FindByUserID] user %d: %w", userID, apperrors.ErrSessionNotFound)
	}
	return &record, nil
}
