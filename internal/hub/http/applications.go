package http

import (
	"net/http"

	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/pkg/httpx"
	"github.com/severindevelopment/hub/pkg/hubsdk"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// ApplicationsHandler serves GET /api/applications: the catalogue of apps
// the signed-in user can actually reach, for the portal landing page.
type ApplicationsHandler struct {
	SessionService *service.SessionService
	AccessService  *service.AccessService
	Cookies        CookieConfig
}

func (h *ApplicationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, err := sessionUser(r, h.Cookies, h.SessionService)
	if err != nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "not_authenticated",
		})
		return
	}

	apps, err := h.AccessService.AccessibleApplications(ctx, user)
	if err != nil {
		log.Error("listing accessible applications failed", "user_id", user.ID, "err", err)
		hubsdk.ErrServerError.WriteError(w)
		return
	}

	out := make([]hubsdk.ApplicationSummary, 0, len(apps))
	for _, app := range apps {
		out = append(out, hubsdk.ApplicationSummary{
			ID:          app.ID,
			Slug:        app.Slug,
			Name:        app.Name,
			Description: app.Description,
			URL:         app.URL,
			IconURL:     app.IconURL,
			Public:      app.Public,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}
