package config

import "time"

// GitHub endpoints used when no override is configured
const (
	GitHubAuthURL     = "https://github.com/login/oauth/authorize"
	GitHubTokenURL    = "https://github.com/login/oauth/access_token"
	GitHubUserInfoURL = "https://api.github.com/user"
)

type OAuthConfig interface {
	GetOAuthClientID() string
	GetOAuthClientSecret() string
	GetOAuthRedirectURL() string
	GetOAuthAuthURL() string
	GetOAuthTokenURL() string
	GetOAuthUserInfoURL() string
	GetOAuthScopes() []string
	GetOAuthHTTPTimeout() time.Duration
	GetUpstreamDefaultExpiry() time.Duration
}

type OAuth struct {
	ClientID              string        `env:"GITHUB_CLIENT_ID,required,notEmpty"`
	ClientSecret          string        `env:"GITHUB_CLIENT_SECRET,required,notEmpty"`
	RedirectURL           string        `env:"OAUTH_REDIRECT_URL"`
	AuthURL               string        `env:"OAUTH_AUTH_URL" envDefault:"https://github.com/login/oauth/authorize"`
	TokenURL              string        `env:"OAUTH_TOKEN_URL" envDefault:"https://github.com/login/oauth/access_token"`
	UserInfoURL           string        `env:"OAUTH_USERINFO_URL" envDefault:"https://api.github.com/user"`
	Scopes                []string      `env:"OAUTH_SCOPES" envSeparator:"," envDefault:"read:user"`
	HTTPTimeout           time.Duration `env:"OAUTH_HTTP_TIMEOUT" envDefault:"10s"`
	UpstreamDefaultExpiry time.Duration `env:"UPSTREAM_DEFAULT_EXPIRY" envDefault:"8h"`
}

func (o OAuth) GetOAuthClientID() string {
	return o.ClientID
}

func (o OAuth) GetOAuthClientSecret() string {
	return o.ClientSecret
}

func (o OAuth) GetOAuthAuthURL() string {
	return o.AuthURL
}

func (o OAuth) GetOAuthTokenURL() string {
	return o.TokenURL
}

func (o OAuth) GetOAuthUserInfoURL() string {
	return o.UserInfoURL
}

func (o OAuth) GetOAuthScopes() []string {
	return o.Scopes
}

func (o OAuth) GetOAuthHTTPTimeout() time.Duration {
	return o.HTTPTimeout
}

// GetUpstreamDefaultExpiry is assumed when the provider does not report expires_in
func (o OAuth) GetUpstreamDefaultExpiry() time.Duration {
	return o.UpstreamDefaultExpiry
}
