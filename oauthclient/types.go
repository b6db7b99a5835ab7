package oauthclient

import "time"

// TokenSet is what the provider hands back from a code or refresh exchange
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is zero when the provider did not say
	ExpiresIn time.Duration
}

// Identity is the subset of the provider's user profile the service keeps
type Identity struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}
