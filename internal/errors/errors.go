package errors

import (
	"errors"
	"net/http"
)

// Error kinds surfaced by the session lifecycle
var (
	// Login errors
	ErrCsrfMismatch   = errors.New("csrf token mismatch")
	ErrInvalidRequest = errors.New("invalid request")
	ErrRateLimited    = errors.New("too many requests")

	// Token errors
	ErrTokenInvalid = errors.New("invalid token")
	ErrForbidden    = errors.New("forbidden")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrUserNotFound    = errors.New("user not found")

	// Upstream provider errors
	ErrUpstreamExchange = errors.New("upstream token exchange failed")
	ErrUpstreamRejected = errors.New("upstream provider rejected the request")

	// General errors
	ErrStorage  = errors.New("storage failure")
	ErrInternal = errors.New("internal error")
)

// kinds is checked in order; the first match decides status and message.
// ErrUpstreamRejected must precede ErrUpstreamExchange since rejected errors carry both.
var kinds = []struct {
	err    error
	status int
}{
	{ErrCsrfMismatch, http.StatusBadRequest},
	{ErrInvalidRequest, http.StatusBadRequest},
	{ErrTokenInvalid, http.StatusForbidden},
	{ErrSessionNotFound, http.StatusForbidden},
	{ErrForbidden, http.StatusForbidden},
	{ErrUpstreamRejected, http.StatusForbidden},
	{ErrUpstreamExchange, http.StatusBadGateway},
	{ErrUserNotFound, http.StatusNotFound},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrStorage, http.StatusInternalServerError},
}

// StatusCode maps err to the HTTP status of the error envelope
func StatusCode(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to show to a client. Internal
// failures never leak their cause; a 502 keeps its upstream message.
func PublicMessage(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			if k.status == http.StatusInternalServerError {
				return ErrInternal.Error()
			}
			return k.err.Error()
		}
	}
	return ErrInternal.Error()
}
