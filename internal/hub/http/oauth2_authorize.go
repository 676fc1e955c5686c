package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/pkg/httpx"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// AuthorizeHandler serves GET /oauth/authorize.
//
// Client and redirect_uri validation runs before anything session related:
// when either is wrong the redirect target cannot be trusted, so those
// failures render an error page and never redirect. Errors after that point
// are reported to the client application per RFC 6749 via the redirect URI,
// except access_denied which is rendered so an unentitled user sees why
// they bounced.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	SessionService   *service.SessionService
	Cookies          CookieConfig
}

func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	query := r.URL.Query()
	clientID := query.Get("client_id")
	redirectURI := query.Get("redirect_uri")
	responseType := query.Get("response_type")
	state := query.Get("state")
	echoState := query.Has("state")
	scopes := httpx.ParseSpaceDelimitedFields(query.Get("scope"))

	if clientID == "" {
		http.Error(w, "missing client_id", http.StatusBadRequest)
		return
	}

	if err := h.AuthorizeService.ValidateClient(ctx, clientID, redirectURI); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			http.Error(w, "unknown application", http.StatusBadRequest)
		case errors.Is(err, service.ErrInvalidRedirectURI):
			log.Warn("redirect_uri not registered", "client_id", clientID, "redirect_uri", redirectURI)
			http.Error(w, "redirect_uri is not registered for this application", http.StatusBadRequest)
		default:
			log.Error("client validation failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	user, err := sessionUser(r, h.Cookies, h.SessionService)
	if err != nil {
		// No session: bounce through SSO and come back here afterwards.
		login := url.URL{
			Path:     "/auth/sso/login",
			RawQuery: url.Values{"redirect_to": {r.URL.RequestURI()}}.Encode(),
		}
		http.Redirect(w, r, login.String(), http.StatusFound)
		return
	}

	result, err := h.AuthorizeService.IssueAuthorizationCode(ctx, service.AuthorizeRequest{
		User:         user,
		ResponseType: responseType,
		ClientID:     clientID,
		RedirectURI:  redirectURI,
		Scope:        scopes,
		State:        state,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedResponseType):
			redirectError(w, r, redirectURI, state, echoState, "unsupported_response_type")
		case errors.Is(err, service.ErrInvalidScope):
			redirectError(w, r, redirectURI, state, echoState, "invalid_scope")
		case errors.Is(err, service.ErrAccessDenied):
			http.Error(w, "you do not have access to this application", http.StatusForbidden)
		case errors.Is(err, service.ErrInvalidClient), errors.Is(err, service.ErrInvalidRedirectURI):
			http.Error(w, "unknown application", http.StatusBadRequest)
		default:
			log.Error("authorize failed", "client_id", clientID, "err", err)
			redirectError(w, r, redirectURI, state, echoState, "server_error")
		}
		return
	}

	params := url.Values{"code": {result.Code}}
	if echoState {
		params.Set("state", result.State)
	}
	redirectWith(w, r, result.RedirectURI, params)
}

// redirectError sends an RFC 6749 error response back to the client app.
// Only called once the redirect URI has been validated. State is echoed
// exactly as received, including an empty value, whenever the request
// carried the parameter.
func redirectError(w http.ResponseWriter, r *http.Request, redirectURI, state string, echoState bool, code string) {
	params := url.Values{"error": {code}}
	if echoState {
		params.Set("state", state)
	}
	redirectWith(w, r, redirectURI, params)
}

func redirectWith(w http.ResponseWriter, r *http.Request, redirectURI string, params url.Values) {
	target, err := url.Parse(redirectURI)
	if err != nil {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}

	query := target.Query()
	for key, values := range params {
		if len(values) > 0 {
			query.Set(key, values[0])
		}
	}
	target.RawQuery = query.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}
