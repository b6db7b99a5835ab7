package auth

import (
	"context"

	"github.com/yexiyue/actions/oauthclient"
	"github.com/yexiyue/actions/sessions"
	"github.com/yexiyue/actions/users"
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users    users.Repo    // Users created or found on login
	Sessions sessions.Repo // Upstream credentials, one record per user
}

// OAuthClient is the upstream provider as seen by the login and refresh flows
type OAuthClient interface {
	BuildAuthorizationURL() (url string, csrfToken string, err error)
	ExchangeCode(ctx context.Context, code string) (*oauthclient.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*oauthclient.TokenSet, error)
	FetchIdentity(ctx context.Context, accessToken string) (*oauthclient.Identity, error)
}

var _ OAuthClient = (*oauthclient.Client)(nil)
