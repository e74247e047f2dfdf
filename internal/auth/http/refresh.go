package http

import (
	"net/http"

	"github.com/trackforge/trackforge/internal/auth/service"
	"github.com/trackforge/trackforge/pkg/httpx"
)

// RefreshHandler serves POST /v1/auth/refresh. The refresh token arrives in
// its cookie (or a JSON body for non-browser clients); a dead token clears
// the cookie on the way out so clients stop replaying it.
type RefreshHandler struct {
	Auth   *service.AuthService
	Secure bool
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := refreshToken(r)
	if raw == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "no refresh token presented")
		return
	}

	transport := newCookieTransport(w, h.Secure)
	principal, pair, err := h.Auth.Refresh(r.Context(), raw, transport)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(principal, pair))
}
