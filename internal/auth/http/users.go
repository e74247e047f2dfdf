package http

import (
	"net/http"
	"strconv"

	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/service"
	"github.com/trackforge/trackforge/pkg/httpx"
)

// UpdateRoleHandler serves PUT /v1/users/{id}/role. ADMIN only.
type UpdateRoleHandler struct {
	Users *service.UserService
	Guard *service.Guard
}

func (h *UpdateRoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, _, err := h.Guard.Authorize(ctx, OpUpdateRole, bearerToken(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user id must be a positive integer")
		return
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "role is required")
		return
	}
	role, ok := domain.ParseRole(body.Role)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_role", "role must be ADMIN, ENABLER, or COLLABORATOR")
		return
	}

	updated, err := h.Users.UpdateRole(ctx, id, role)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, updated)
}
