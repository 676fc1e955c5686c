package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/pkg/httpx"
	"github.com/severindevelopment/hub/pkg/hubsdk"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// TokenHandler serves POST /oauth/token.
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	TokenService *service.TokenService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		hubsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		hubsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	req := service.ExchangeRequest{
		GrantType:    r.Form.Get("grant_type"),
		ClientID:     strings.TrimSpace(r.Form.Get("client_id")),
		ClientSecret: r.Form.Get("client_secret"),
		Code:         strings.TrimSpace(r.Form.Get("code")),
		RedirectURI:  strings.TrimSpace(r.Form.Get("redirect_uri")),
		RefreshToken: r.Form.Get("refresh_token"),
	}

	// client_secret may also arrive via HTTP Basic auth.
	if user, pass, ok := r.BasicAuth(); ok {
		req.ClientID = user
		req.ClientSecret = pass
	}

	pair, err := h.TokenService.Exchange(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			hubsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidGrant):
			hubsdk.ErrInvalidGrant.WriteError(w)
		case errors.Is(err, service.ErrInvalidRequest):
			hubsdk.ErrInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrUnsupportedGrantType):
			hubsdk.ErrUnsupportedGrantType.WriteError(w)
		default:
			log.Error("token exchange failed", "grant_type", req.GrantType, "err", err)
			hubsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, hubsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		Scope:        pair.Scope,
	})
}
