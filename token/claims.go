package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token. It carries the upstream access
// token so downstream handlers can call the provider on the user's behalf.
// The upstream refresh token never leaves the server.
type Claims struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
	jwt.RegisteredClaims
}

// ExpiresAtTime returns the expiry or the zero time when unset
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func (c *Claims) validate() error {
	if c.UserID <= 0 {
		return errors.New("user_id claim missing")
	}
	if c.AccessToken == "" {
		return errors.New("access_token claim missing")
	}
	return nil
}
