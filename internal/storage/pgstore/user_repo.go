package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/yexiyue/actions/internal/errors"
	"github.com/yexiyue/actions/users"
)

var _ users.Repo = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const insertUserSQL = `
INSERT INTO users (id, username, avatar_url, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING`

func (r *UserRepo) CreateOrFind(ctx context.Context, user *users.User) (*users.User, error) {
	if user == nil || user.ID <= 0 {
		return nil, fmt.Errorf("[UserRepo CreateOrFind] user id is required: %w", apperrors.ErrInvalidRequest)
	}

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = users.NowTimeFunc()
	}
	if _, err := r.pool.Exec(ctx, insertUserSQL, user.ID, user.Username, user.AvatarURL, createdAt.UTC()); err != nil {
		return nil, fmt.Errorf("[UserRepo CreateOrFind] user %d: %w: %w", user.ID, apperrors.ErrStorage, err)
	}
	return r.GetByID(ctx, user.ID)
}

const getUserSQL = `SELECT id, username, avatar_url, created_at FROM users WHERE id = $1`

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*users.User, error) {
	var u users.User
	err := r.pool.QueryRow(ctx, getUserSQL, id).Scan(&u.ID, &u.Username, &u.AvatarURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("[UserRepo GetByID] %d: %w", id, apperrors.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("[UserRepo GetByID] %d: %w: %w", id, apperrors.ErrStorage, err)
	}
	return &u, nil
}

// Delete removes the user; the session record goes with it through the
// foreign key cascade.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("[UserRepo Delete] %d: %w: %w", id, apperrors.ErrStorage, err)
	}
	return nil
}
