package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	apperrors "github.com/yexiyue/actions/internal/errors"
	"github.com/yexiyue/actions/users"
)

var _ users.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *bun.DB
}

func NewUserRepo(db *bun.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) CreateOrFind(ctx context.Context, user *users.User) (*users.User, error) {
	if user == nil || user.ID <= 0 {
		return nil, fmt.Errorf("[UserRepo CreateOrFind] user id is required: %w", apperrors.ErrInvalidRequest)
	}

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = users.NowTimeFunc()
	}
	m := &userModel{
		ID:        user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		CreatedAt: createdAt.UTC(),
	}
	if _, err := r.db.NewInsert().
		Model(m).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("[UserRepo CreateOrFind] user %d: %w: %w", user.ID, apperrors.ErrStorage, err)
	}
	return r.GetByID(ctx, user.ID)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*users.User, error) {
	m := new(userModel)
	err := r.db.NewSelect().
		Model(m).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("[UserRepo GetByID] %d: %w", id, apperrors.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("[UserRepo GetByID] %d: %w: %w", id, apperrors.ErrStorage, err)
	}
	return m.toUser(), nil
}

// Delete removes the user; the session record goes with it through the
// foreign key cascade.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.NewDelete().
		Model((*userModel)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("[UserRepo Delete] %d: %w: %w", id, apperrors.ErrStorage, err)
	}
	return nil
}

