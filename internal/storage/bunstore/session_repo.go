package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	apperrors "github.com/yexiyue/actions/internal/errors"
	"github.com/yexiyue/actions/sessions"
)

var _ sessions.Repo = (*SessionRepo)(nil)

type SessionRepo struct {
	db *bun.DB
}

func NewSessionRepo(db *bun.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) UpsertByUserID(ctx context.Context, record *sessions.Record) (*sessions.Record, error) {
	if record == nil || record.UserID <= 0 {
		return nil, fmt.Errorf("[SessionRepo UpsertByUserID] user id is required: %w", apperrors.ErrInvalidRequest)
	}

	m := newSessionModel(record)
	if _, err := r.db.NewInsert().
		Model(m).
		On("CONFLICT (user_id) DO UPDATE").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("expires_at = EXCLUDED.expires_at").
		Returning("id").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("[SessionRepo UpsertByUserID] user %d: %w: %w", record.UserID, apperrors.ErrStorage, err)
	}
	return m.toRecord(), nil
}

func (r *SessionRepo) FindByUserID(ctx context.Context, userID int64) (*sessions.Record, error) {
	m := new(sessionModel)
	err := r.db.NewSelect().
		Model(m).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("[SessionRepo FindByUserID] user %d: %w", userID, apperrors.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("[SessionRepo FindByUserID] user %d: %w: %w", userID, apperrors.ErrStorage, err)
	}
	return m.toRecord(), nil
}
