package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/passtheaux/internal/services"
	"github.com/desertthunder/passtheaux/internal/shared"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"` // upstream failure kind, when known
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	if kind := services.KindOf(err); kind != 0 {
		resp.Kind = kind.String()
	}
	_ = writeJSON(w, statusFor(err), resp)
}

// statusFor maps pipeline and upstream errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidMood),
		errors.Is(err, shared.ErrTooManyUsers):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrMissingCredentials),
		errors.Is(err, shared.ErrTokenExpired),
		errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrRunNotFound),
		errors.Is(err, shared.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, shared.ErrNoCandidates),
		errors.Is(err, shared.ErrNoTracksResolved),
		errors.Is(err, shared.ErrEmptyCuration),
		errors.Is(err, shared.ErrCurationShape):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrAPIRequest),
		errors.Is(err, shared.ErrMalformedResponse),
		errors.Is(err, shared.ErrCreatePlaylist):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
