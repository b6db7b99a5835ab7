package sessions

import "context"

type Repo interface {
	// UpsertByUserID inserts record or overwrites the tokens and expiry of the
	// existing record for record.UserID as a single atomic step. The returned
	// record carries the store assigned ID, which is stable across updates.
	UpsertByUserID(ctx context.Context, record *Record) (*Record, error)

	// FindByUserID returns errors.ErrSessionNotFound when the user has no record
	FindByUserID(ctx context.Context, userID int64) (*Record, error)
}
