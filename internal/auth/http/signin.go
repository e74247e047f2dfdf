package http

import (
	"net/http"

	"github.com/trackforge/trackforge/internal/auth/service"
	"github.com/trackforge/trackforge/pkg/httpx"
)

// SignInHandler serves POST /v1/auth/signin.
type SignInHandler struct {
	Auth   *service.AuthService
	Secure bool
}

func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	transport := newCookieTransport(w, h.Secure)
	principal, pair, err := h.Auth.SignIn(r.Context(), body.Email, body.Password, transport)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(principal, pair))
}
