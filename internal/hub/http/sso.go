package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/pkg/httpx"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// SSOLoginHandler serves GET /auth/sso/login. It kicks off the OIDC flow
// against the corporate IdP and parks state/nonce in short-lived cookies.
type SSOLoginHandler struct {
	SSOService *service.SSOService
	Cookies    CookieConfig
}

func (h *SSOLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	redirectTo := sanitizeRedirect(r.URL.Query().Get("redirect_to"))

	login, err := h.SSOService.BeginLogin(redirectTo)
	if err != nil {
		log.Error("sso login initiation failed", "err", err)
		loginFailure(w)
		return
	}

	h.Cookies.setTemp(w, r, ssoStateCookie, login.StateToken)
	h.Cookies.setTemp(w, r, ssoNonceCookie, login.Nonce)

	http.Redirect(w, r, login.AuthURL, http.StatusFound)
}

// SSOCallbackHandler serves GET /auth/sso/callback: the IdP redirect target.
// On success it provisions/refreshes the user, issues the session cookie and
// sends the browser back to wherever login started.
type SSOCallbackHandler struct {
	SSOService     *service.SSOService
	UserService    *service.UserService
	SessionService *service.SessionService
	Cookies        CookieConfig
}

func (h *SSOCallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		log.Warn("idp returned error", "error", errCode, "description", query.Get("error_description"))
		loginFailure(w)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}

	stateCookie, err := r.Cookie(ssoStateCookie)
	if err != nil {
		http.Error(w, "login session expired, please retry", http.StatusBadRequest)
		return
	}

	stateToken, redirectTo := service.ParseState(state)
	if err := h.SSOService.VerifyState(stateCookie.Value, stateToken); err != nil {
		log.Warn("sso state mismatch")
		http.Error(w, "state mismatch, please retry login", http.StatusBadRequest)
		return
	}

	var nonce string
	if c, err := r.Cookie(ssoNonceCookie); err == nil {
		nonce = c.Value
	}

	claims, err := h.SSOService.CompleteLogin(ctx, code, nonce)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSSOTokenInvalid):
			log.Warn("sso id token rejected", "err", err)
		default:
			log.Error("sso login completion failed", "err", err)
		}
		loginFailure(w)
		return
	}

	user, err := h.UserService.GetOrCreateFromSSO(ctx, claims)
	if err != nil {
		if errors.Is(err, service.ErrUserInactive) {
			http.Error(w, "account is deactivated", http.StatusForbidden)
			return
		}
		log.Error("user provisioning failed", "err", err)
		loginFailure(w)
		return
	}

	session, err := h.SessionService.Issue(user)
	if err != nil {
		log.Error("session issue failed", "err", err)
		loginFailure(w)
		return
	}

	h.Cookies.clearTemp(w, r, ssoStateCookie)
	h.Cookies.clearTemp(w, r, ssoNonceCookie)
	h.Cookies.setSession(w, r, session)

	http.Redirect(w, r, sanitizeRedirect(redirectTo), http.StatusFound)
}

// LogoutHandler serves POST /auth/logout. Sessions are stateless, so logout
// is purely a cookie deletion.
type LogoutHandler struct {
	Cookies CookieConfig
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Cookies.clearSession(w, r)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// sanitizeRedirect restricts post-login redirects to local paths so the
// login endpoint can't be used as an open redirector.
func sanitizeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}

func loginFailure(w http.ResponseWriter) {
	http.Error(w, "sign-in is temporarily unavailable, please try again", http.StatusServiceUnavailable)
}
