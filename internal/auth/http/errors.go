package http

import (
	"errors"
	"net/http"

	"github.com/trackforge/trackforge/internal/auth/service"
	"github.com/trackforge/trackforge/internal/auth/store"
	"github.com/trackforge/trackforge/pkg/httpx"
)

// writeServiceError maps service errors onto the wire. Token and credential
// failures deliberately stay terse; internal detail never leaves the process.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken", "an account with this email already exists")
	case errors.Is(err, service.ErrInvalidEmail):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_email", "email address is not valid")
	case errors.Is(err, service.ErrWeakSecret):
		httpx.WriteError(w, http.StatusBadRequest, "weak_password", "password does not meet the minimum length")
	case errors.Is(err, service.ErrTokenExpired):
		httpx.WriteError(w, http.StatusUnauthorized, "token_expired", "token has expired")
	case errors.Is(err, service.ErrTokenReused):
		httpx.WriteError(w, http.StatusUnauthorized, "token_reused", "refresh token was already used; session revoked")
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "insufficient role for this operation")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "resource does not exist")
	case errors.Is(err, service.ErrUnavailable):
		w.Header().Set("Retry-After", "1")
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "temporarily unable to verify; retry")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
	}
}
