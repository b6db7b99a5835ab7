package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"
	apperrors "github.com/yexiyue/actions/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusCode(err)
	logger := hlog.FromRequest(r)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		logger.Warn().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, r, status, ErrorResponse{Code: status, Error: apperrors.PublicMessage(err)})
}
