package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/argus-admin/argus-core/internal/auth"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnavailable  = "service_unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceUnavailable writes a 503 error response.
func writeServiceUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeAuthError maps domain errors from the auth package onto HTTP
// responses. Handlers call it after any repository or service call so
// the status mapping lives in exactly one place.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, "invalid email or password")
	case errors.Is(err, auth.ErrSessionInvalid):
		writeUnauthorized(w, "session is invalid or expired")
	case errors.Is(err, auth.ErrResetTokenInvalid):
		writeBadRequest(w, "reset token is invalid or expired")
	case errors.Is(err, auth.ErrWeakPassword):
		writeBadRequest(w, "password does not meet minimum requirements")
	case errors.Is(err, auth.ErrSelfAction):
		writeForbidden(w, "cannot perform this action on your own account")
	case errors.Is(err, auth.ErrForbidden):
		writeForbidden(w, "insufficient permissions")
	case errors.Is(err, auth.ErrEmailExists):
		writeConflict(w, "a user with this email already exists")
	case errors.Is(err, auth.ErrRoleExists):
		writeConflict(w, "a role with this name already exists")
	case errors.Is(err, auth.ErrUserNotFound):
		writeNotFound(w, "user not found")
	case errors.Is(err, auth.ErrRoleNotFound):
		writeNotFound(w, "role not found")
	case errors.Is(err, auth.ErrUpstreamUnavailable):
		writeServiceUnavailable(w, "authentication backend unavailable")
	default:
		writeInternalError(w, "internal error")
	}
}
