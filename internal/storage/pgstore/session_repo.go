package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/yexiyue/actions/internal/errors"
	"github.com/yexiyue/actions/sessions"
)

var _ sessions.Repo = (*SessionRepo)(nil)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

const upsertSessionSQL = `
INSERT INTO sessions (user_id, access_token, refresh_token, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET
    access_token  = EXCLUDED.access_token,
    refresh_token = EXCLUDED.refresh_token,
    expires_at    = EXCLUDED.expires_at
RETURNING id`

func (r *SessionRepo) UpsertByUserID(ctx context.Context, record *sessions.Record) (*sessions.Record, error) {
	if record == nil || record.UserID <= 0 {
		return nil, fmt.Errorf("[SessionRepo UpsertByUserID] user id is required: %w", apperrors.ErrInvalidRequest)
	}

	stored := *record
	stored.ExpiresAt = record.ExpiresAt.UTC()
	err := r.pool.QueryRow(ctx, upsertSessionSQL,
		stored.UserID,
		stored.AccessToken,
		stored.RefreshToken,
		stored.ExpiresAt,
	).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("[SessionRepo UpsertByUserID] user %d: %w: %w", record.UserID, apperrors.ErrStorage, err)
	}
	return &stored, nil
}

const findSessionSQL = `
SELECT id, user_id, access_token, refresh_token, expires_at
FROM sessions
WHERE user_id = $1`

func (r *SessionRepo) FindByUserID(ctx context.Context, userID int64) (*sessions.Record, error) {
	var rec sessions.Record
	err := r.pool.QueryRow(ctx, findSessionSQL, userID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.AccessToken,
		&rec.RefreshToken,
		&rec.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("[SessionRepo FindByUserID] user %d: %w", userID, apperrors.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("[SessionRepo FindByUserID] user %d: %w: %w", userID, apperrors.ErrStorage, err)
	}
	return &rec, nil
}
