package http

import (
	"net/http"

	"github.com/trackforge/trackforge/internal/auth/service"
	"github.com/trackforge/trackforge/pkg/httpx"
)

// SignUpHandler serves POST /v1/auth/signup. Registration signs the new
// account in immediately, so the response carries a full token pair.
type SignUpHandler struct {
	Auth   *service.AuthService
	Secure bool
}

func (h *SignUpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	if _, err := h.Auth.SignUp(ctx, body.Email, body.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	transport := newCookieTransport(w, h.Secure)
	principal, pair, err := h.Auth.SignIn(ctx, body.Email, body.Password, transport)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, newTokenResponse(principal, pair))
}
