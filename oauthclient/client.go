// Package oauthclient talks to the upstream OAuth provider (GitHub by default).
package oauthclient

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yexiyue/actions/internal/config"
	apperrors "github.com/yexiyue/actions/internal/errors"
	"golang.org/x/oauth2"
)

const (
	// csrfTokenBytes of entropy in the state parameter
	csrfTokenBytes = 32
	maxIdentityBody = 1 << 20
)

// NowTimeFunc converts absolute expiry times to durations
var NowTimeFunc = time.Now

type Client struct {
	oauth2Config *oauth2.Config
	httpClient   *http.Client
	userInfoURL  string
	userAgent    string
}

// Config carries what the client needs from the application configuration
type Config interface {
	config.OAuthConfig
	GetAppName() string
}

func New(cfg Config) *Client {
	return &Client{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.GetOAuthClientID(),
			ClientSecret: cfg.GetOAuthClientSecret(),
			RedirectURL:  cfg.GetOAuthRedirectURL(),
			Scopes:       cfg.GetOAuthScopes(),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.GetOAuthAuthURL(),
				TokenURL:  cfg.GetOAuthTokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient:  &http.Client{Timeout: cfg.GetOAuthHTTPTimeout()},
		userInfoURL: cfg.GetOAuthUserInfoURL(),
		userAgent:   cfg.GetAppName(),
	}
}

// BuildAuthorizationURL returns the provider URL to send the browser to and
// the random state embedded in it. The caller stores the state on the
// client and compares it on callback.
func (c *Client) BuildAuthorizationURL() (string, string, error) {
	csrfToken, err := generateRandomString(csrfTokenBytes)
	if err != nil {
		return "", "", fmt.Errorf("[Client BuildAuthorizationURL] %w", err)
	}
	return c.oauth2Config.AuthCodeURL(csrfToken), csrfToken, nil
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	tok, err := c.oauth2Config.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("[Client ExchangeCode] %w", classify(err))
	}
	return c.toTokenSet(tok, ""), nil
}

// Refresh exchanges refreshToken for a new token pair. Providers that do not
// rotate refresh tokens omit it from the response; the previous one is kept.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("[Client Refresh] no refresh token stored: %w", apperrors.ErrUpstreamExchange)
	}

	src := c.oauth2Config.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("[Client Refresh] %w", classify(err))
	}
	return c.toTokenSet(tok, refreshToken), nil
}

// FetchIdentity reads the profile of the user owning accessToken
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("[Client FetchIdentity] %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[Client FetchIdentity] %w: %w", apperrors.ErrUpstreamExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIdentityBody))
	if err != nil {
		return nil, fmt.Errorf("[Client FetchIdentity] read body: %w: %w", apperrors.ErrUpstreamExchange, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("url", c.userInfoURL).Msg("identity request failed")
		if resp.StatusCode < http.StatusInternalServerError {
			return nil, fmt.Errorf("[Client FetchIdentity] status %d: %w: %w", resp.StatusCode, apperrors.ErrUpstreamExchange, apperrors.ErrUpstreamRejected)
		}
		return nil, fmt.Errorf("[Client FetchIdentity] status %d: %w", resp.StatusCode, apperrors.ErrUpstreamExchange)
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("[Client FetchIdentity] decode: %w: %w", apperrors.ErrUpstreamExchange, err)
	}
	if identity.ID <= 0 {
		return nil, fmt.Errorf("[Client FetchIdentity] profile without id: %w", apperrors.ErrUpstreamExchange)
	}
	return &identity, nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) toTokenSet(tok *oauth2.Token, previousRefreshToken string) *TokenSet {
	set := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if set.RefreshToken == "" {
		set.RefreshToken = previousRefreshToken
	}
	switch {
	case tok.ExpiresIn > 0:
		set.ExpiresIn = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		set.ExpiresIn = tok.Expiry.Sub(NowTimeFunc())
	}
	return set
}

// classify tags provider failures. A 4xx answer from the token endpoint
// means the grant was refused, anything else is an unreachable upstream.
func classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
		retrieveErr.Response.StatusCode < http.StatusInternalServerError {
		return fmt.Errorf("%w: %w: %w", apperrors.ErrUpstreamExchange, apperrors.ErrUpstreamRejected, err)
	}
	return fmt.Errorf("%w: %w", apperrors.ErrUpstreamExchange, err)
}

func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
