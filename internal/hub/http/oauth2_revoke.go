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

// RevokeHandler serves POST /oauth/revoke per RFC 7009. Client
// authentication failures get 401; once the client is authenticated the
// response is 200 no matter what the token was, so revocation can't be used
// to probe for live tokens.
type RevokeHandler struct {
	TokenService *service.TokenService
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	clientID := strings.TrimSpace(r.Form.Get("client_id"))
	clientSecret := r.Form.Get("client_secret")
	if user, pass, ok := r.BasicAuth(); ok {
		clientID = user
		clientSecret = pass
	}

	err := h.TokenService.Revoke(ctx, clientID, clientSecret, r.Form.Get("token"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidClient) {
			hubsdk.ErrInvalidClient.WriteError(w)
			return
		}
		log.Error("revocation failed", "client_id", clientID, "err", err)
		hubsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
