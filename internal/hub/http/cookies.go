package http

import (
	"net/http"
	"time"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/service"
)

// Short-lived cookies carried across the SSO redirect round trip.
const (
	ssoStateCookie = "hub_sso_state"
	ssoNonceCookie = "hub_sso_nonce"
	ssoCookieTTL   = 10 * time.Minute
)

// CookieConfig controls how the session cookie is written.
type CookieConfig struct {
	// SessionName is the session cookie name.
	SessionName string

	// SessionTTL bounds the cookie Max-Age; the JWT inside carries its own
	// expiry too.
	SessionTTL time.Duration

	// TrustForwardedProto treats X-Forwarded-Proto: https as TLS when the
	// hub sits behind a terminating proxy. Off unless explicitly enabled.
	TrustForwardedProto bool
}

// secure reports whether cookies for this request should carry the Secure
// attribute.
func (c CookieConfig) secure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return c.TrustForwardedProto && r.Header.Get("X-Forwarded-Proto") == "https"
}

func (c CookieConfig) setSession(w http.ResponseWriter, r *http.Request, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.SessionName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clearSession(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.SessionName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) setTemp(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth/sso",
		MaxAge:   int(ssoCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clearTemp(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/auth/sso",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionUser resolves the session cookie to a live user. Any failure, from
// a missing cookie to a deactivated user, comes back as an error; callers
// treat them all as "not signed in".
func sessionUser(r *http.Request, cookies CookieConfig, sessions *service.SessionService) (domain.User, error) {
	cookie, err := r.Cookie(cookies.SessionName)
	if err != nil {
		return domain.User{}, service.ErrSessionInvalid
	}
	return sessions.Validate(r.Context(), cookie.Value)
}
