package httpx

import (
	"net/http"
	"slices"
)

// RequireAnyScope enforces that the authenticated token carries at least one
// of the listed scopes. Must run after AuthnMiddleware.
func RequireAnyScope(scopes ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			granted := scopesFromCtx(r.Context())

			for _, want := range scopes {
				if slices.Contains(granted, want) {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
			WriteJSON(w, http.StatusForbidden, map[string]string{
				"error":             "insufficient_scope",
				"error_description": "the access token does not have the required scopes",
			})
		})
	}
}
