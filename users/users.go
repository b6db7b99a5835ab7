package users

import "time"

// User is the local record of an upstream (GitHub) account. ID is the
// provider's numeric user id.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createAt"`
}
