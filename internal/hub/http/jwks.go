package http

import (
	"net/http"

	"github.com/severindevelopment/hub/pkg/httpx"
	"github.com/severindevelopment/hub/pkg/hubsdk"
	"github.com/severindevelopment/hub/pkg/jwtx"
)

// JWKSHandler exposes the hub's signing public keys so downstream apps can
// verify access tokens locally.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, hubsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
