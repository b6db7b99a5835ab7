package config

import "time"

const minSecretLength = 16

type SecurityConfig interface {
	GetJWTSecret() string
	GetCookieSecret() string
	GetCookieSecure() bool
	GetSessionTokenLifetime() time.Duration
	GetSessionCookieMaxAge() time.Duration
	GetCSRFCookieMaxAge() time.Duration
	GetRefreshTimeout() time.Duration
	GetLoginRatePerMinute() int
}

type Security struct {
	JWTSecret          string        `env:"JWT_SECRET,required,notEmpty"`
	CookieSecret       string        `env:"COOKIE_SECRET"`
	TokenLifetime      time.Duration `env:"SESSION_TOKEN_LIFETIME" envDefault:"7h"`
	SessionCookieAge   time.Duration `env:"SESSION_COOKIE_MAX_AGE" envDefault:"720h"`
	CSRFCookieAge      time.Duration `env:"CSRF_COOKIE_MAX_AGE" envDefault:"10m"`
	RefreshTimeout     time.Duration `env:"REFRESH_TIMEOUT" envDefault:"15s"`
	LoginRatePerMinute int           `env:"LOGIN_RATE_PER_MINUTE" envDefault:"20"`
}

func (s Security) GetJWTSecret() string {
	return s.JWTSecret
}

// GetCookieSecret keys the cookie sealing. The JWT secret is used when unset.
func (s Security) GetCookieSecret() string {
	if s.CookieSecret == "" {
		return s.JWTSecret
	}
	return s.CookieSecret
}

func (s Security) GetSessionTokenLifetime() time.Duration {
	return s.TokenLifetime
}

// GetSessionCookieMaxAge outlives the token so an expired token is still
// presented and can be refreshed.
func (s Security) GetSessionCookieMaxAge() time.Duration {
	return s.SessionCookieAge
}

func (s Security) GetCSRFCookieMaxAge() time.Duration {
	return s.CSRFCookieAge
}

func (s Security) GetRefreshTimeout() time.Duration {
	return s.RefreshTimeout
}

func (s Security) GetLoginRatePerMinute() int {
	return s.LoginRatePerMinute
}
