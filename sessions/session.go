package sessions

import "time"

// Record holds the upstream credentials of a user. There is at most one
// record per user; logins and refreshes overwrite it in place.
type Record struct {
	ID           int64
	UserID       int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
