package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetLogLevel() string
	GetEnv() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Storage
}

// New reads the configuration from the process environment. Required
// secrets that are missing fail here rather than at first use.
func New() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config New] parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("[config New] %w", err)
	}
	return c, nil
}

func (c mainConfig) validate() error {
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	switch c.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}
	if c.TokenLifetime <= 0 {
		return fmt.Errorf("SESSION_TOKEN_LIFETIME must be positive")
	}
	return nil
}

// GetOAuthRedirectURL falls back to the callback route under the base URL.
func (c mainConfig) GetOAuthRedirectURL() string {
	if c.RedirectURL != "" {
		return c.RedirectURL
	}
	return c.GetBaseURL() + "/api/auth/callback"
}

// GetCookieSecure is true when the service is reached over https.
func (c mainConfig) GetCookieSecure() bool {
	return isHTTPS(c.GetBaseURL())
}
