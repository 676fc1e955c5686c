package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/pkg/httpx"
	"github.com/severindevelopment/hub/pkg/jwtx"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	cookies      CookieConfig

	store              store.Store
	SessionService     *service.SessionService
	SSOService         *service.SSOService
	UserService        *service.UserService
	AccessService      *service.AccessService
	AuthorizeService   *service.AuthorizeService
	TokenService       *service.TokenService
	ApplicationService *service.ApplicationService
	GroupService       *service.GroupService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	issuer, buildVersion string,
	cookies CookieConfig,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		cookies:      cookies,
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSSO()
	r.registerPortal()
	r.registerOAuth2()
	r.registerAdmin()
	r.registerWellKnown()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSSO() {
	login := &SSOLoginHandler{
		SSOService: r.SSOService,
		Cookies:    r.cookies,
	}
	callback := &SSOCallbackHandler{
		SSOService:     r.SSOService,
		UserService:    r.UserService,
		SessionService: r.SessionService,
		Cookies:        r.cookies,
	}
	logout := &LogoutHandler{Cookies: r.cookies}

	r.Mux.Handle("GET /auth/sso/login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Callback is where SSO codes get exchanged; brute force lives here.
	r.Mux.Handle("GET /auth/sso/callback",
		httpx.Chain(callback,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(logout,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPortal() {
	me := &MeHandler{SessionService: r.SessionService, Cookies: r.cookies}
	check := &CheckHandler{SessionService: r.SessionService, Cookies: r.cookies}
	apps := &ApplicationsHandler{
		SessionService: r.SessionService,
		AccessService:  r.AccessService,
		Cookies:        r.cookies,
	}

	r.Mux.Handle("GET /auth/me",
		httpx.Chain(me, httpx.RateLimitByIP(httpx.LenientLimit)),
	)
	r.Mux.Handle("GET /auth/check",
		httpx.Chain(check, httpx.RateLimitByIP(httpx.LenientLimit)),
	)
	r.Mux.Handle("GET /api/applications",
		httpx.Chain(apps, httpx.RateLimitByIP(httpx.LenientLimit)),
	)
}

func (r *Router) registerOAuth2() {
	authorize := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		SessionService:   r.SessionService,
		Cookies:          r.cookies,
	}
	r.Mux.Handle("GET /oauth/authorize",
		httpx.Chain(authorize,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	token := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth/token",
		httpx.Chain(token,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	revoke := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth/revoke",
		httpx.Chain(revoke,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// The middleware rejects malformed or mis-signed bearers early; the
	// handler re-validates through the token service for revocation and
	// user-active state.
	userinfo := &UserInfoHandler{TokenService: r.TokenService}
	r.Mux.Handle("GET /oauth/userinfo",
		httpx.Chain(userinfo,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("openid", "profile"),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

// registerAdmin mounts the application registry management surface. Admin
// access rides the same session cookie as the portal, gated on User.Admin.
func (r *Router) registerAdmin() {
	h := &AdminHandler{
		SessionService:     r.SessionService,
		ApplicationService: r.ApplicationService,
		GroupService:       r.GroupService,
		UserService:        r.UserService,
		Cookies:            r.cookies,
	}

	limited := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, httpx.RateLimitByIP(httpx.ModerateLimit))
	}

	r.Mux.Handle("GET /api/admin/applications", limited(h.HandleListApplications))
	r.Mux.Handle("POST /api/admin/applications", limited(h.HandleRegisterApplication))
	r.Mux.Handle("POST /api/admin/applications/{id}/secret", limited(h.HandleRotateSecret))
	r.Mux.Handle("POST /api/admin/applications/{id}/grants", limited(h.HandleCreateGrant))
	r.Mux.Handle("GET /api/admin/applications/{id}/grants", limited(h.HandleListGrants))
	r.Mux.Handle("DELETE /api/admin/grants/{id}", limited(h.HandleRevokeGrant))
	r.Mux.Handle("POST /api/admin/groups", limited(h.HandleCreateGroup))
	r.Mux.Handle("GET /api/admin/groups", limited(h.HandleListGroups))
	r.Mux.Handle("POST /api/admin/groups/{id}/members", limited(h.HandleAddMember))
	r.Mux.Handle("DELETE /api/admin/groups/{id}/members/{userID}", limited(h.HandleRemoveMember))
}

func (r *Router) registerWellKnown() {
	r.Mux.Handle("GET /.well-known/openid-configuration",
		httpx.Chain(DiscoveryHandler(r.issuer),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
