package server

import (
	"fmt"
	"net/http"

	apperrors "github.com/yexiyue/actions/internal/errors"
	"github.com/yexiyue/actions/users"
)

type loginResponse struct {
	URL string `json:"url"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// LoginHandler hands out the provider authorization URL and keeps the CSRF
// token in a sealed cookie until the callback.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := s.auth.Login()
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.setCSRFCookie(w, r, start.CSRFToken); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, loginResponse{URL: start.URL})
	}
}

// CallbackHandler completes the login. It serves both the query and the
// form_post response modes.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presentedCSRF, _ := s.readSealedCookie(w, r, cookieNameCSRF)
		// The CSRF token is single use whatever the outcome
		s.clearCookie(w, r, cookieNameCSRF)

		if providerErr := r.FormValue("error"); providerErr != "" {
			writeError(w, r, fmt.Errorf("[CallbackHandler] provider returned %q (%s): %w",
				providerErr, r.FormValue("error_description"), apperrors.ErrUpstreamRejected))
			return
		}

		result, err := s.auth.CompleteCallback(r.Context(), r.FormValue("code"), r.FormValue("state"), presentedCSRF)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.setSessionCookie(w, r, result.Token); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, sessionResponse{Token: result.Token, User: result.User})
	}
}

// RefreshHandler re-issues the session token on demand. When the interceptor
// already refreshed an expired token, that token is returned as is.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := refreshedTokenFromContext(r.Context()); raw != "" {
			writeJSON(w, r, http.StatusOK, refreshResponse{Token: raw})
			return
		}

		claims, _ := ClaimsFromContext(r.Context())
		issued, err := s.auth.Refresh(r.Context(), claims.UserID)
		if err != nil {
			if apperrors.StatusCode(err) == http.StatusForbidden {
				s.clearCookie(w, r, cookieNameToken)
			}
			writeError(w, r, err)
			return
		}
		if err := s.setSessionCookie(w, r, issued.Token); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, refreshResponse{Token: issued.Token})
	}
}

// LogoutHandler only forgets the token on the client; the stored session
// stays so a later login updates it in place.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.clearCookie(w, r, cookieNameToken)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		user, err := s.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, user)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
	}
}
