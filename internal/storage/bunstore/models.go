package bunstore

import (
	"time"

	"github.com/uptrace/bun"
	"github.com/yexiyue/actions/sessions"
	"github.com/yexiyue/actions/users"
)

type userModel struct {
	bun.BaseModel `bun:"table:users"`

	ID        int64     `bun:"id,pk"`
	Username  string    `bun:"username,notnull"`
	AvatarURL string    `bun:"avatar_url,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (m *userModel) toUser() *users.User {
	return &users.User{
		ID:        m.ID,
		Username:  m.Username,
		AvatarURL: m.AvatarURL,
		CreatedAt: m.CreatedAt,
	}
}

type sessionModel struct {
	bun.BaseModel `bun:"table:sessions"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull,unique"`
	AccessToken  string    `bun:"access_token,notnull"`
	RefreshToken string    `bun:"refresh_token,notnull"`
	ExpiresAt    time.Time `bun:"expires_at,notnull"`
}

func newSessionModel(r *sessions.Record) *sessionModel {
	return &sessionModel{
		UserID:       r.UserID,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.ExpiresAt.UTC(),
	}
}

func (m *sessionModel) toRecord() *sessions.Record {
	return &sessions.Record{
		ID:           m.ID,
		UserID:       m.UserID,
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		ExpiresAt:    m.ExpiresAt,
	}
}
