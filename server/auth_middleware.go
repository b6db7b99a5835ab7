package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/yexiyue/actions/auth"
	apperrors "github.com/yexiyue/actions/internal/errors"
	"github.com/yexiyue/actions/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores the claims of the session token
	ContextKeyClaims ContextKey = "claims"
	// ContextKeyRefreshedToken stores the token issued by the interceptor
	ContextKeyRefreshedToken ContextKey = "refreshed_token"
)

// ClaimsFromContext returns the session claims the interceptor put on the request
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok && claims != nil
}

func refreshedTokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(ContextKeyRefreshedToken).(string)
	return raw
}

// SessionTokenMiddleware inspects the session token of every API request.
// Requests without a token pass untouched, a valid token puts its claims in
// the context and an expired one is refreshed before the handler runs.
func (s *Server) SessionTokenMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, fromHeader := s.readSessionToken(w, r)

		outcome, err := s.auth.Authenticate(r.Context(), raw)
		if err != nil {
			if apperrors.StatusCode(err) == http.StatusForbidden {
				s.clearCookie(w, r, cookieNameToken)
			}
			writeError(w, r, err)
			return
		}
		if outcome.Decision == auth.DecisionAnonymous {
			next(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyClaims, outcome.Claims)
		if outcome.Decision == auth.DecisionRefreshed {
			if err := s.setSessionCookie(w, r, outcome.Token); err != nil {
				writeError(w, r, err)
				return
			}
			if fromHeader {
				w.Header().Set(HeaderSessionToken, outcome.Token)
			}
			ctx = context.WithValue(ctx, ContextKeyRefreshedToken, outcome.Token)
		}

		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Int64("user_id", outcome.Claims.UserID)
		})
		next(w, r.WithContext(ctx))
	}
}

// RequireClaims rejects requests the interceptor did not authenticate
func (s *Server) RequireClaims(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			writeError(w, r, fmt.Errorf("[RequireClaims] %s: %w", r.URL.Path, apperrors.ErrForbidden))
			return
		}
		next(w, r)
	}
}

// readSessionToken prefers the token cookie and falls back to a Bearer
// Authorization header. fromHeader reports which one was used.
func (s *Server) readSessionToken(w http.ResponseWriter, r *http.Request) (raw string, fromHeader bool) {
	if raw, ok := s.readSealedCookie(w, r, cookieNameToken); ok {
		return raw, false
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
