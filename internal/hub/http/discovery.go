package http

import (
	"net/http"
	"strings"

	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/pkg/httpx"
	"github.com/severindevelopment/hub/pkg/hubsdk"
)

// DiscoveryHandler serves GET /.well-known/openid-configuration. Everything
// here is static given the issuer URL.
func DiscoveryHandler(issuer string) http.HandlerFunc {
	base := strings.TrimSuffix(issuer, "/")
	doc := hubsdk.DiscoveryDocument{
		Issuer:                            issuer,
		AuthorizationEndpoint:             base + "/oauth/authorize",
		TokenEndpoint:                     base + "/oauth/token",
		UserinfoEndpoint:                  base + "/oauth/userinfo",
		RevocationEndpoint:                base + "/oauth/revoke",
		JWKSURI:                           base + "/.well-known/jwks.json",
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		ScopesSupported:                   service.SupportedScopes,
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post", "client_secret_basic"},
		IDTokenSigningAlgValuesSupported:  []string{"EdDSA"},
		SubjectTypesSupported:             []string{"public"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}
