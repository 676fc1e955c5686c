package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/pkg/httpx"
	"github.com/severindevelopment/hub/pkg/hubsdk"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// AdminHandler carries the application registry and group management
// endpoints. Every handler requires a session whose user has the admin flag.
type AdminHandler struct {
	SessionService     *service.SessionService
	ApplicationService *service.ApplicationService
	GroupService       *service.GroupService
	UserService        *service.UserService
	Cookies            CookieConfig
}

// requireAdmin resolves the session and enforces the admin flag. Writes the
// error response itself; callers bail out when ok is false.
func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	user, err := sessionUser(r, h.Cookies, h.SessionService)
	if err != nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, hubsdk.ErrorResponse{
			Error:            "not_authenticated",
			ErrorDescription: "Sign in first",
		})
		return domain.User{}, false
	}
	if !user.Admin {
		httpx.WriteJSON(w, http.StatusForbidden, hubsdk.ErrorResponse{
			Error:            "forbidden",
			ErrorDescription: "Admin access required",
		})
		return domain.User{}, false
	}
	return user, true
}

type registerApplicationRequest struct {
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	URL          string   `json:"url"`
	IconURL      string   `json:"icon_url"`
	RedirectURIs []string `json:"redirect_uris"`
	Public       bool     `json:"public"`
}

type registeredApplicationResponse struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"` // shown once, never again
}

// HandleRegisterApplication handles POST /api/admin/applications.
func (h *AdminHandler) HandleRegisterApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req registerApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, hubsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON in request body",
		})
		return
	}

	if strings.TrimSpace(req.Slug) == "" || strings.TrimSpace(req.Name) == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, hubsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "slug and name are required",
		})
		return
	}

	registered, err := h.ApplicationService.Register(ctx, service.RegisterApplicationRequest{
		Slug:         req.Slug,
		Name:         req.Name,
		Description:  req.Description,
		URL:          req.URL,
		IconURL:      req.IconURL,
		RedirectURIs: req.RedirectURIs,
		Public:       req.Public,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			httpx.WriteJSON(w, http.StatusBadRequest, hubsdk.ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "Non-public applications need at least one redirect URI",
			})
		case errors.Is(err, store.ErrAlreadyExists):
			httpx.WriteJSON(w, http.StatusConflict, hubsdk.ErrorResponse{
				Error:            "conflict",
				ErrorDescription: "An application with that slug already exists",
			})
		default:
			log.Error("application registration failed", "error", err)
			hubsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, registeredApplicationResponse{
		ID:           registered.Application.ID,
		Slug:         registered.Application.Slug,
		ClientID:     registered.Application.ClientID,
		ClientSecret: registered.ClientSecret,
	})
}

type adminApplicationResponse struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	URL          string   `json:"url,omitempty"`
	IconURL      string   `json:"icon_url,omitempty"`
	ClientID     string   `json:"client_id"`
	RedirectURIs []string `json:"redirect_uris"`
	Public       bool     `json:"public"`
	Active       bool     `json:"active"`
	CreatedAt    string   `json:"created_at"`
}

// HandleListApplications handles GET /api/admin/applications.
func (h *AdminHandler) HandleListApplications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	apps, err := h.ApplicationService.List(ctx)
	if err != nil {
		log.Error("listing applications failed", "error", err)
		hubsdk.ErrServerError.WriteError(w)
		return
	}

	out := make([]adminApplicationResponse, len(apps))
	for i, app := range apps {
		out[i] = adminApplicationResponse{
			ID:           app.ID,
			Slug:         app.Slug,
			Name:         app.Name,
			Description:  app.Description,
			URL:          app.URL,
			IconURL:      app.IconURL,
			ClientID:     app.ClientID,
			RedirectURIs: app.RedirectURIs,
			Public:       app.Public,
			Active:       app.Active,
			CreatedAt:    app.CreatedAt.Format(time.RFC3339),
		}
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRotateSecret handles POST /api/admin/applications/{id}/secret.
func (h *AdminHandler) HandleRotateSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	appID := r.PathValue("id")
	secret, err := h.ApplicationService.RotateSecret(ctx, appID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, hubsdk.ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Application not found",
			})
			return
		}
		log.Error("secret rotation failed", "application_id", appID, "error", err)
		hubsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"client_secret": secret,
	})
}

type createGrantRequest struct {
	SubjectType string `json:"subject_type"` // "user" or "group"
	SubjectID   string `json:"subject_id"`
}

// HandleCreateGrant handles POST /api/admin/applications/{id}/grants.
func (h *AdminHandler) HandleCreateGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req createGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, hubsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON in request body",
		})
		return
	}

	appID := r.PathValue("id")

	var grant domain.AccessGrant
	var err error
	switch req.SubjectType {
	case domain.GrantSubjectUser:
		grant, err = h.ApplicationService.GrantUser(ctx, appID, req.SubjectID, admin.ID)
	case domain.GrantSubjectGroup:
		grant, err = h.ApplicationService.GrantGroup(ctx, appID, req.SubjectID, admin.ID)
	default:
		httpx.WriteJSON(w, http.StatusBadRequest, hubsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: `subject_type must be "user" or "group"`,
		})
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, hubsdk.ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Application or subject not found",
			})
		case errors.Is(err, store.ErrAlreadyExists):
			httpx.WriteJSON(w, http.StatusConflict, hubsdk.ErrorResponse{
				Error:            "conflict",
				ErrorDescription: "Grant already exists",
			})
		case errors.Is(err, service.ErrInvalidRequest):
			httpx.WriteJSON(w, http.StatusBadRequest, hubsdk.ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "subject_id is required",
			})
		default:
			log.Error("grant creation failed", "application_id", appID, "error", err)
			hubsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"id": grant.ID,
	})
}

type grantResponse struct {
	ID          string `json:"id"`
	SubjectType string `json:"subject_type"`
	SubjectID   string `json:"subject_id"`
	GrantedBy   string `json:"granted_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// HandleListGrants handles GET /api/admin/applications/{id}/grants.
func (h *AdminHandler) HandleListGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	appID := r.PathValue("id")
	grants, err := h.ApplicationService.ListGrants(ctx, appID)
	if err != nil {
		log.Error("listing grants failed", "application_id", appID, "error", err)
		hubsdk.ErrServerError.WriteError(w)
		return
	}

	out := make([]grantResponse, len(grants))
	for i, g := range grants {
		out[i] = grantResponse{
			ID:          g.ID,
			SubjectType: g.SubjectType,
			SubjectID:   g.SubjectID,
			GrantedBy:   g.GrantedBy,
			CreatedAt:   g.CreatedAt.Format(time.RFC3339),
		}
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevokeGrant handles DELETE /api/admin/grants/{id}.
func (h *AdminHandler) HandleRevokeGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	grantID := r.PathValue("id")
	if err := h.ApplicationService.RevokeGrant(ctx, grantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, hubsdk.ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Grant not found",
			})
			return
		}
		log.Error("grant revocation failed", "grant_id", grantID, "error", err)
		hubsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreateGroup handles POST /api/admin/groups.
func (h *AdminHandler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, hubsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON in request body",
		})
		return
	}

	group, err := h.GroupService.Create(ctx, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			httpx.WriteJSON(w, http.StatusBadRequest, hubsdk.ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "Group name is required",
			})
		case errors.Is(err, store.ErrAlreadyExists):
			httpx.WriteJSON(w, http.StatusConflict, hubsdk.ErrorResponse{
				Error:            "conflict",
				ErrorDescription: "A group with that name already exists",
			})
		default:
			log.Error("group creation failed", "error", err)
			hubsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"id":   group.ID,
		"name": group.Name,
	})
}

// HandleListGroups handles GET /api/admin/groups.
func (h *AdminHandler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	groups, err := h.GroupService.List(ctx)
	if err != nil {
		log.Error("listing groups failed", "error", err)
		hubsdk.ErrServerError.WriteError(w)
		return
	}

	type groupResponse struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
	out := make([]groupResponse, len(groups))
	for i, g := range groups {
		out[i] = groupResponse{ID: g.ID, Name: g.Name, Description: g.Description}
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

// HandleAddMember handles POST /api/admin/groups/{id}/members.
func (h *AdminHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, hubsdk.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "user_id is required",
		})
		return
	}

	groupID := r.PathValue("id")
	if err := h.GroupService.AddMember(ctx, groupID, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, hubsdk.ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Group or user not found",
			})
			return
		}
		log.Error("adding group member failed", "group_id", groupID, "error", err)
		hubsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveMember handles DELETE /api/admin/groups/{id}/members/{userID}.
func (h *AdminHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	groupID := r.PathValue("id")
	userID := r.PathValue("userID")
	if err := h.GroupService.RemoveMember(ctx, groupID, userID); err != nil {
		log.Error("removing group member failed", "group_id", groupID, "user_id", userID, "error", err)
		hubsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
