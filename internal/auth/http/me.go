package http

import (
	"net/http"

	"github.com/trackforge/trackforge/internal/auth/service"
	"github.com/trackforge/trackforge/pkg/httpx"
)

// MeHandler serves GET /v1/auth/me. Returns the storage-backed principal,
// so a role change shows up here before the token catches up.
type MeHandler struct {
	Auth  *service.AuthService
	Guard *service.Guard
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, _, err := h.Guard.Authorize(ctx, OpMe, bearerToken(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	current, err := h.Auth.CurrentPrincipal(ctx, principal.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, current)
}
