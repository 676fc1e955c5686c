package http

import (
	"net/http"
	"strings"

	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/pkg/httpx"
	"github.com/severindevelopment/hub/pkg/hubsdk"
)

// UserInfoHandler serves GET /oauth/userinfo. Validation goes through the
// token service rather than bare JWT verification so revoked pairs and
// deactivated users are rejected before access-token expiry.
type UserInfoHandler struct {
	TokenService *service.TokenService
}

func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		hubsdk.ErrInvalidToken.WriteError(w)
		return
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

	user, _, err := h.TokenService.ValidateAccessToken(ctx, raw)
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		hubsdk.ErrInvalidToken.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, hubsdk.UserInfoResponse{
		Sub:               user.ID,
		Email:             user.Email,
		Name:              user.Name,
		PreferredUsername: user.Email,
		Groups:            user.ADGroups,
	})
}
