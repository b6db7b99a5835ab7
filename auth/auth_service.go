package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	apperrors "github.com/yexiyue/actions/internal/errors"
	"github.com/yexiyue/actions/internal/metrics"
	"github.com/yexiyue/actions/oauthclient"
	"github.com/yexiyue/actions/sessions"
	"github.com/yexiyue/actions/token"
	"github.com/yexiyue/actions/users"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshTimeout = 15 * time.Second
	defaultUpstreamExpiry = 8 * time.Hour
)

// Decision is what the token check concluded for a request
type Decision int

const (
	DecisionAnonymous Decision = iota
	DecisionValid
	DecisionRefreshed
)

// Outcome of Authenticate. Claims is nil for anonymous requests, Token is
// only set when the session was refreshed and must be handed back.
type Outcome struct {
	Decision Decision
	Claims   *token.Claims
	Token    string
}

// Issued is a freshly signed session token
type Issued struct {
	Token  string
	Claims *token.Claims
}

type LoginStart struct {
	URL       string
	CSRFToken string
}

type LoginResult struct {
	Issued
	User *users.User
}

// Service runs the login flow and keeps session tokens alive by refreshing
// the upstream credentials behind them.
type Service struct {
	repos          Repos
	oauth          OAuthClient
	codec          *token.Codec
	metrics        metrics.Recorder
	refreshTimeout time.Duration
	upstreamExpiry time.Duration
	nowTime        func() time.Time

	// inflight collapses concurrent refreshes of the same user
	inflight singleflight.Group
}

// Option defines a function type to modify the Service instance.
type Option func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = recorder
	}
}

// WithRefreshTimeout bounds a refresh, which is not cancelled with the request
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.refreshTimeout = timeout
		}
	}
}

// WithUpstreamExpiry is used when the provider does not report expires_in
func WithUpstreamExpiry(expiry time.Duration) Option {
	return func(s *Service) {
		if expiry > 0 {
			s.upstreamExpiry = expiry
		}
	}
}

func NewService(repos Repos, oauth OAuthClient, codec *token.Codec, options ...Option) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}
	if oauth == nil {
		return nil, errors.New("[NewService] oauth client is required")
	}
	if codec == nil {
		return nil, errors.New("[NewService] codec is required")
	}

	s := &Service{
		repos:          repos,
		oauth:          oauth,
		codec:          codec,
		metrics:        metrics.Nop{},
		refreshTimeout: defaultRefreshTimeout,
		upstreamExpiry: defaultUpstreamExpiry,
		nowTime:        time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login starts the authorization code flow. The CSRF token has to be kept by
// the client and presented again to CompleteCallback.
func (s *Service) Login() (*LoginStart, error) {
	url, csrfToken, err := s.oauth.BuildAuthorizationURL()
	if err != nil {
		return nil, fmt.Errorf("[Service Login] %w", err)
	}
	return &LoginStart{URL: url, CSRFToken: csrfToken}, nil
}

// CompleteCallback finishes the login once the provider redirected back with
// code and state. presentedCSRF is the token the client kept from Login.
func (s *Service) CompleteCallback(ctx context.Context, code, state, presentedCSRF string) (*LoginResult, error) {
	if presentedCSRF == "" || subtle.ConstantTimeCompare([]byte(state), []byte(presentedCSRF)) != 1 {
		s.metrics.RecordLogin(metrics.ResultCsrfMismatch)
		return nil, fmt.Errorf("[Service CompleteCallback] %w", apperrors.ErrCsrfMismatch)
	}
	if code == "" {
		s.metrics.RecordLogin(metrics.ResultError)
		return nil, fmt.Errorf("[Service CompleteCallback] missing code: %w", apperrors.ErrInvalidRequest)
	}

	result, err := s.completeLogin(ctx, code)
	if err != nil {
		s.metrics.RecordLogin(resultLabel(err))
		return nil, err
	}
	s.metrics.RecordLogin(metrics.ResultSuccess)
	log.Info().Int64("user_id", result.User.ID).Str("username", result.User.Username).Msg("user logged in")
	return result, nil
}

func (s *Service) completeLogin(ctx context.Context, code string) (*LoginResult, error) {
	set, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("[Service CompleteCallback] exchange code: %w", err)
	}

	identity, err := s.oauth.FetchIdentity(ctx, set.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("[Service CompleteCallback] fetch identity: %w", err)
	}

	user, err := s.repos.Users.CreateOrFind(ctx, &users.User{
		ID:        identity.ID,
		Username:  identity.Login,
		AvatarURL: identity.AvatarURL,
		CreatedAt: s.nowTime().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("[Service CompleteCallback] user %d: %w", identity.ID, err)
	}

	if _, err := s.repos.Sessions.UpsertByUserID(ctx, &sessions.Record{
		UserID:       user.ID,
		AccessToken:  set.AccessToken,
		RefreshToken: set.RefreshToken,
		ExpiresAt:    s.upstreamExpiresAt(set),
	}); err != nil {
		return nil, fmt.Errorf("[Service CompleteCallback] store session: %w", err)
	}

	raw, claims, err := s.codec.Issue(user.ID, set.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("[Service CompleteCallback] issue token: %w", err)
	}

	return &LoginResult{
		Issued: Issued{Token: raw, Claims: claims},
		User:   user,
	}, nil
}

// Authenticate decides what to do with the session token of a request. An
// empty token is anonymous, a valid one passes, an expired one is refreshed
// and anything else is rejected with errors.ErrTokenInvalid.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Outcome, error) {
	if raw == "" {
		s.metrics.RecordDecision(metrics.DecisionAnonymous)
		return &Outcome{Decision: DecisionAnonymous}, nil
	}

	result := s.codec.Decode(raw)
	switch result.Status {
	case token.StatusValid:
		s.metrics.RecordDecision(metrics.DecisionValid)
		return &Outcome{Decision: DecisionValid, Claims: result.Claims}, nil

	case token.StatusExpired:
		issued, err := s.Refresh(ctx, result.Claims.UserID)
		if err != nil {
			s.metrics.RecordDecision(metrics.DecisionRejected)
			return nil, err
		}
		s.metrics.RecordDecision(metrics.DecisionRefreshed)
		return &Outcome{Decision: DecisionRefreshed, Claims: issued.Claims, Token: issued.Token}, nil

	default:
		s.metrics.RecordDecision(metrics.DecisionRejected)
		log.Debug().Err(result.Reason).Msg("rejected session token")
		return nil, fmt.Errorf("[Service Authenticate] %w: %w", apperrors.ErrTokenInvalid, result.Reason)
	}
}

// Refresh trades the stored refresh token of userID for new upstream
// credentials, persists them and signs a new session token. Concurrent calls
// for the same user share one refresh. The work is detached from ctx
// cancellation so a client hanging up does not lose the rotated credentials.
func (s *Service) Refresh(ctx context.Context, userID int64) (*Issued, error) {
	v, err, shared := s.inflight.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()

		start := time.Now()
		issued, err := s.refresh(refreshCtx, userID)
		s.metrics.RecordRefresh(resultLabel(err), time.Since(start))
		return issued, err
	})
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("session refresh failed")
		return nil, err
	}
	if shared {
		log.Debug().Int64("user_id", userID).Msg("joined in-flight session refresh")
	}
	return v.(*Issued), nil
}

func (s *Service) refresh(ctx context.Context, userID int64) (*Issued, error) {
	record, err := s.repos.Sessions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("[Service Refresh] user %d: %w", userID, err)
	}

	set, err := s.oauth.Refresh(ctx, record.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("[Service Refresh] user %d: %w", userID, err)
	}

	refreshToken := set.RefreshToken
	if refreshToken == "" {
		refreshToken = record.RefreshToken
	}
	if _, err := s.repos.Sessions.UpsertByUserID(ctx, &sessions.Record{
		UserID:       userID,
		AccessToken:  set.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    s.upstreamExpiresAt(set),
	}); err != nil {
		return nil, fmt.Errorf("[Service Refresh] user %d: %w", userID, err)
	}

	raw, claims, err := s.codec.Issue(userID, set.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("[Service Refresh] user %d: issue token: %w", userID, err)
	}

	log.Info().Int64("user_id", userID).Msg("session refreshed")
	return &Issued{Token: raw, Claims: claims}, nil
}

func (s *Service) upstreamExpiresAt(set *oauthclient.TokenSet) time.Time {
	expiresIn := set.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = s.upstreamExpiry
	}
	return s.nowTime().Add(expiresIn).UTC()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, apperrors.ErrSessionNotFound):
		return metrics.ResultSessionNotFound
	case errors.Is(err, apperrors.ErrUpstreamExchange):
		return metrics.ResultUpstreamFailure
	case errors.Is(err, apperrors.ErrStorage):
		return metrics.ResultStorageFailure
	default:
		return metrics.ResultError
	}
}
