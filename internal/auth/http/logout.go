package http

import (
	"net/http"

	"github.com/trackforge/trackforge/internal/auth/service"
)

// LogoutHandler serves POST /v1/auth/logout. Requires a valid access token
// and revokes every session the subject has.
type LogoutHandler struct {
	Auth   *service.AuthService
	Guard  *service.Guard
	Secure bool
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	_, claims, err := h.Guard.Authorize(ctx, OpLogout, bearerToken(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	transport := newCookieTransport(w, h.Secure)
	if err := h.Auth.Logout(ctx, claims, transport); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
