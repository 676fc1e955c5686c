package http

import (
	"net/http"
	"time"

	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/pkg/httpx"
)

// MeHandler serves GET /auth/me: the signed-in user's profile for the portal.
type MeHandler struct {
	SessionService *service.SessionService
	Cookies        CookieConfig
}

type meResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email,omitempty"`
	Name        string     `json:"name,omitempty"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	MiddleName  string     `json:"middle_name,omitempty"`
	Department  string     `json:"department,omitempty"`
	JobTitle    string     `json:"job_title,omitempty"`
	Groups      []string   `json:"groups,omitempty"`
	Admin       bool       `json:"admin"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r, h.Cookies, h.SessionService)
	if err != nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "not_authenticated",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		MiddleName:  user.MiddleName,
		Department:  user.Department,
		JobTitle:    user.JobTitle,
		Groups:      user.ADGroups,
		Admin:       user.Admin,
		LastLoginAt: user.LastLoginAt,
	})
}

// CheckHandler serves GET /auth/check: a cheap probe the portal frontend
// polls to decide whether to show the login screen. Always 200.
type CheckHandler struct {
	SessionService *service.SessionService
	Cookies        CookieConfig
}

func (h *CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, err := sessionUser(r, h.Cookies, h.SessionService)
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{
		"authenticated": err == nil,
	})
}
