package users

import "context"

type Repo interface {
	// CreateOrFind stores user if no user with the same ID exists and returns
	// the stored record either way. An existing record is not modified.
	CreateOrFind(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}
