package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
)

const (
	cookieNameToken = "token"
	cookieNameCSRF  = "csrf_token"
)

func (s *Server) secureCookies(r *http.Request) bool {
	return s.config.GetCookieSecure() || getScheme(r) == "https"
}

func (s *Server) setSealedCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge time.Duration) error {
	sealed, err := s.cookies.Seal(name, value)
	if err != nil {
		return fmt.Errorf("[Server setSealedCookie] %s: %w", name, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    sealed,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, raw string) error {
	return s.setSealedCookie(w, r, cookieNameToken, raw, s.config.GetSessionCookieMaxAge())
}

func (s *Server) setCSRFCookie(w http.ResponseWriter, r *http.Request, csrfToken string) error {
	return s.setSealedCookie(w, r, cookieNameCSRF, csrfToken, s.config.GetCSRFCookieMaxAge())
}

func (s *Server) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// readSealedCookie returns the opened cookie value. Cookies that fail to open
// are treated as absent and cleared on the client.
func (s *Server) readSealedCookie(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	value, err := s.cookies.Open(name, cookie.Value)
	if err != nil {
		hlog.FromRequest(r).Debug().Str("cookie", name).Msg("clearing unreadable cookie")
		s.clearCookie(w, r, name)
		return "", false
	}
	return value, true
}
