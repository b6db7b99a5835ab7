package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/yexiyue/actions/auth"
	apperrors "github.com/yexiyue/actions/internal/errors"
	"github.com/yexiyue/actions/internal/metrics"
	"github.com/yexiyue/actions/oauthclient"
	"github.com/yexiyue/actions/sessions"
	"github.com/yexiyue/actions/token"
	"github.com/yexiyue/actions/users"
)

const (
	secretStr   = "0123456789abcdef0123456789abcdef"
	testCSRF    = "csrf-token-X"
	testUserID  = int64(42)
	testAuthURL = "https://github.com/login/oauth/authorize?state=" + testCSRF
)

var testNow = time.Unix(1_700_000_000, 0).UTC()

// fakeOAuth records calls and answers with canned token sets
type fakeOAuth struct {
	mu            sync.Mutex
	exchangeCodes []string
	refreshTokens []string

	exchangeSet *oauthclient.TokenSet
	exchangeErr error
	refreshSet  *oauthclient.TokenSet
	refreshErr  error
	identity    *oauthclient.Identity

	// refreshGate, when set, blocks Refresh until closed
	refreshGate chan struct{}
	// refreshEntered, when set, is signalled when Refresh is entered
	refreshEntered chan struct{}
}

func (f *fakeOAuth) BuildAuthorizationURL() (string, string, error) {
	return testAuthURL, testCSRF, nil
}

func (f *fakeOAuth) ExchangeCode(_ context.Context, code string) (*oauthclient.TokenSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCodes = append(f.exchangeCodes, code)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeSet, nil
}

func (f *fakeOAuth) Refresh(_ context.Context, refreshToken string) (*oauthclient.TokenSet, error) {
	if f.refreshEntered != nil {
		select {
		case f.refreshEntered <- struct{}{}:
		default:
		}
	}
	if f.refreshGate != nil {
		<-f.refreshGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshTokens = append(f.refreshTokens, refreshToken)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshSet, nil
}

func (f *fakeOAuth) FetchIdentity(_ context.Context, _ string) (*oauthclient.Identity, error) {
	return f.identity, nil
}

func (f *fakeOAuth) exchangeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.exchangeCodes)
}

func (f *fakeOAuth) refreshCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshTokens...)
}

// failingSessions wraps a repo and fails writes
type failingSessions struct {
	sessions.Repo
	upsertErr error
}

func (f failingSessions) UpsertByUserID(ctx context.Context, r *sessions.Record) (*sessions.Record, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return f.Repo.UpsertByUserID(ctx, r)
}

type testFixture struct {
	users    *users.InMemoryRepo
	sessions *sessions.InMemoryRepo
	oauth    *fakeOAuth
	codec    *token.Codec
	registry *prometheus.Registry
	service  *auth.Service
}

func setClock(t *testing.T, now time.Time) {
	t.Helper()
	previous := token.NowTimeFunc
	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = previous })
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	setClock(t, testNow)

	f := &testFixture{
		users:    users.NewInMemoryRepo(),
		sessions: sessions.NewInMemoryRepo(),
		oauth: &fakeOAuth{
			exchangeSet: &oauthclient.TokenSet{AccessToken: "AT1", RefreshToken: "RT1", ExpiresIn: 28800 * time.Second},
			refreshSet:  &oauthclient.TokenSet{AccessToken: "AT2", RefreshToken: "RT2", ExpiresIn: 28800 * time.Second},
			identity:    &oauthclient.Identity{ID: testUserID, Login: "octocat", AvatarURL: "https://avatars/octocat"},
		},
		codec:    token.NewCodec(token.NewHMACSigner(secretStr), 7*time.Hour),
		registry: prometheus.NewRegistry(),
	}

	service, err := auth.NewService(
		auth.Repos{Users: f.users, Sessions: f.sessions},
		f.oauth,
		f.codec,
		auth.WithNowTime(func() time.Time { return testNow }),
		auth.WithMetrics(metrics.NewCollector(f.registry)),
	)
	require.NoError(t, err)
	f.service = service
	return f
}

// expiredToken signs a token for userID that expired one second ago
func (f *testFixture) expiredToken(t *testing.T, userID int64, accessToken string) string {
	t.Helper()
	raw, err := f.codec.Encode(&token.Claims{
		AccessToken: accessToken,
		UserID:      userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(testNow.Add(-time.Second)),
		},
	})
	require.NoError(t, err)
	return raw
}

func (f *testFixture) seedSession(t *testing.T, userID int64, accessToken, refreshToken string) *sessions.Record {
	t.Helper()
	rec, err := f.sessions.UpsertByUserID(context.Background(), &sessions.Record{
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    testNow.Add(time.Hour),
	})
	require.NoError(t, err)
	return rec
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	codec := token.NewCodec(token.NewHMACSigner(secretStr), time.Hour)
	repos := auth.Repos{Users: users.NewInMemoryRepo(), Sessions: sessions.NewInMemoryRepo()}

	_, err := auth.NewService(auth.Repos{Sessions: repos.Sessions}, &fakeOAuth{}, codec)
	require.Error(t, err)
	_, err = auth.NewService(auth.Repos{Users: repos.Users}, &fakeOAuth{}, codec)
	require.Error(t, err)
	_, err = auth.NewService(repos, nil, codec)
	require.Error(t, err)
	_, err = auth.NewService(repos, &fakeOAuth{}, nil)
	require.Error(t, err)
}

func TestFreshLogin(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	start, err := f.service.Login()
	require.NoError(t, err)
	require.Equal(t, testAuthURL, start.URL)
	require.Equal(t, testCSRF, start.CSRFToken)

	result, err := f.service.CompleteCallback(ctx, "abc", testCSRF, start.CSRFToken)
	require.NoError(t, err)
	require.Equal(t, testUserID, result.User.ID)
	require.Equal(t, "octocat", result.User.Username)
	require.Equal(t, []string{"abc"}, f.oauth.exchangeCodes)

	rec, err := f.sessions.FindByUserID(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, "AT1", rec.AccessToken)
	require.Equal(t, "RT1", rec.RefreshToken)
	require.True(t, testNow.Add(28800*time.Second).Equal(rec.ExpiresAt))

	decoded := f.codec.Decode(result.Token)
	require.Equal(t, token.StatusValid, decoded.Status)
	require.Equal(t, testUserID, decoded.Claims.UserID)
	require.Equal(t, "AT1", decoded.Claims.AccessToken)
	require.Equal(t, testNow.Add(25200*time.Second).Unix(), decoded.Claims.ExpiresAtTime().Unix())

	stored, err := f.users.GetByID(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, "https://avatars/octocat", stored.AvatarURL)
}

func TestLoginTwiceKeepsOneSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.CompleteCallback(ctx, "abc", testCSRF, testCSRF)
	require.NoError(t, err)
	first, err := f.sessions.FindByUserID(ctx, testUserID)
	require.NoError(t, err)

	f.oauth.exchangeSet = &oauthclient.TokenSet{AccessToken: "AT9", RefreshToken: "RT9"}
	_, err = f.service.CompleteCallback(ctx, "def", testCSRF, testCSRF)
	require.NoError(t, err)

	second, err := f.sessions.FindByUserID(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "AT9", second.AccessToken)
	require.Equal(t, "RT9", second.RefreshToken)
	require.True(t, testNow.Add(8*time.Hour).Equal(second.ExpiresAt), "default upstream expiry applies")
}

func TestCompleteCallbackCSRF(t *testing.T) {
	tests := []struct {
		name      string
		state     string
		presented string
	}{
		{"mismatch", "csrf-token-Y", testCSRF},
		{"missing cookie", testCSRF, ""},
		{"missing state", "", testCSRF},
		{"both empty", "", ""},
		{"prefix only", "csrf-token", testCSRF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)

			_, err := f.service.CompleteCallback(context.Background(), "abc", tt.state, tt.presented)
			require.ErrorIs(t, err, apperrors.ErrCsrfMismatch)
			require.Zero(t, f.oauth.exchangeCalls(), "code must not be exchanged")

			_, err = f.sessions.FindByUserID(context.Background(), testUserID)
			require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
		})
	}
}

func TestCompleteCallbackMissingCode(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.CompleteCallback(context.Background(), "", testCSRF, testCSRF)
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	require.Zero(t, f.oauth.exchangeCalls())
}

func TestCompleteCallbackExchangeFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.oauth.exchangeErr = apperrors.ErrUpstreamExchange

	_, err := f.service.CompleteCallback(context.Background(), "abc", testCSRF, testCSRF)
	require.ErrorIs(t, err, apperrors.ErrUpstreamExchange)

	_, err = f.users.GetByID(context.Background(), testUserID)
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestAuthenticateAnonymous(t *testing.T) {
	f := setupTestFixture(t)

	outcome, err := f.service.Authenticate(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, auth.DecisionAnonymous, outcome.Decision)
	require.Nil(t, outcome.Claims)
}

func TestAuthenticateValid(t *testing.T) {
	f := setupTestFixture(t)

	raw, _, err := f.codec.Issue(testUserID, "AT1")
	require.NoError(t, err)

	outcome, err := f.service.Authenticate(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, auth.DecisionValid, outcome.Decision)
	require.Equal(t, testUserID, outcome.Claims.UserID)
	require.Empty(t, outcome.Token)
	require.Empty(t, f.oauth.refreshCalls())
}

func TestAuthenticateExpiredRefreshes(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	seeded := f.seedSession(t, testUserID, "AT1", "RT1")

	outcome, err := f.service.Authenticate(ctx, f.expiredToken(t, testUserID, "AT1"))
	require.NoError(t, err)
	require.Equal(t, auth.DecisionRefreshed, outcome.Decision)
	require.Equal(t, []string{"RT1"}, f.oauth.refreshCalls())

	require.Equal(t, testUserID, outcome.Claims.UserID)
	require.Equal(t, "AT2", outcome.Claims.AccessToken)

	rec, err := f.sessions.FindByUserID(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, seeded.ID, rec.ID)
	require.Equal(t, "AT2", rec.AccessToken)
	require.Equal(t, "RT2", rec.RefreshToken)

	decoded := f.codec.Decode(outcome.Token)
	require.Equal(t, token.StatusValid, decoded.Status)
	require.Equal(t, "AT2", decoded.Claims.AccessToken)

	got, err := testutil.GatherAndCount(f.registry, "actions_auth_refresh_total")
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestAuthenticateExpiredWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Authenticate(context.Background(), f.expiredToken(t, 99, "AT1"))
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	require.Empty(t, f.oauth.refreshCalls(), "provider must not be called")
}

func TestAuthenticateTamperedToken(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, testUserID, "AT1", "RT1")

	raw, _, err := f.codec.Issue(testUserID, "AT1")
	require.NoError(t, err)
	tampered := raw[:len(raw)-4] + "AAAA"
	if tampered == raw {
		tampered = raw[:len(raw)-4] + "BBBB"
	}

	_, err = f.service.Authenticate(context.Background(), tampered)
	require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	require.Empty(t, f.oauth.refreshCalls())

	rec, err := f.sessions.FindByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	require.Equal(t, "AT1", rec.AccessToken)
}

func TestRefreshUpstreamFailureLeavesSessionUntouched(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, testUserID, "AT1", "RT1")
	f.oauth.refreshErr = errors.Join(apperrors.ErrUpstreamExchange, apperrors.ErrUpstreamRejected)

	_, err := f.service.Authenticate(context.Background(), f.expiredToken(t, testUserID, "AT1"))
	require.ErrorIs(t, err, apperrors.ErrUpstreamRejected)

	rec, err := f.sessions.FindByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	require.Equal(t, "AT1", rec.AccessToken)
	require.Equal(t, "RT1", rec.RefreshToken)
}

func TestRefreshStorageFailureIssuesNoToken(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, testUserID, "AT1", "RT1")

	service, err := auth.NewService(
		auth.Repos{Users: f.users, Sessions: failingSessions{Repo: f.sessions, upsertErr: apperrors.ErrStorage}},
		f.oauth,
		f.codec,
		auth.WithNowTime(func() time.Time { return testNow }),
	)
	require.NoError(t, err)

	issued, err := service.Refresh(context.Background(), testUserID)
	require.ErrorIs(t, err, apperrors.ErrStorage)
	require.Nil(t, issued)
	require.Equal(t, []string{"RT1"}, f.oauth.refreshCalls())
}

func TestRefreshKeepsPreviousRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, testUserID, "AT1", "RT1")
	f.oauth.refreshSet = &oauthclient.TokenSet{AccessToken: "AT2"}

	_, err := f.service.Refresh(context.Background(), testUserID)
	require.NoError(t, err)

	rec, err := f.sessions.FindByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	require.Equal(t, "AT2", rec.AccessToken)
	require.Equal(t, "RT1", rec.RefreshToken)
}

func TestRefreshSurvivesCancelledRequest(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, testUserID, "AT1", "RT1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	issued, err := f.service.Refresh(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, "AT2", issued.Claims.AccessToken)

	rec, err := f.sessions.FindByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	require.Equal(t, "RT2", rec.RefreshToken)
}

func TestConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, testUserID, "AT1", "RT1")
	f.oauth.refreshGate = make(chan struct{})
	f.oauth.refreshEntered = make(chan struct{}, 1)
	expired := f.expiredToken(t, testUserID, "AT1")

	const callers = 8
	var ready, done sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	ready.Add(callers)
	for i := range callers {
		done.Add(1)
		go func() {
			defer done.Done()
			ready.Done()
			outcome, err := f.service.Authenticate(context.Background(), expired)
			errs[i] = err
			if err == nil {
				tokens[i] = outcome.Token
			}
		}()
	}

	// every caller is running and one of them holds the refresh at the provider
	ready.Wait()
	<-f.oauth.refreshEntered
	close(f.oauth.refreshGate)
	done.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		require.Equal(t, tokens[0], tokens[i])
	}
	require.Equal(t, []string{"RT1"}, f.oauth.refreshCalls())
}
