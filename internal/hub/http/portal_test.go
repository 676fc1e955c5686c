package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/pkg/hubsdk"
	"github.com/severindevelopment/hub/pkg/idx"
)

func TestMeHandler(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, false)

	t.Run("signed in", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.AddCookie(env.sessionCookie(t, user))
		rec := env.serve(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			ID         string `json:"id"`
			Email      string `json:"email"`
			FirstName  string `json:"first_name"`
			LastName   string `json:"last_name"`
			Department string `json:"department"`
			Admin      bool   `json:"admin"`
		}
		decodeJSON(t, rec, &resp)
		require.Equal(t, user.ID, resp.ID)
		require.Equal(t, user.Email, resp.Email)
		require.Equal(t, user.FirstName, resp.FirstName)
		require.Equal(t, user.LastName, resp.LastName)
		require.Equal(t, user.Department, resp.Department)
		require.False(t, resp.Admin)
	})

	t.Run("no session", func(t *testing.T) {
		rec := env.serve(httptest.NewRequest(http.MethodGet, "/auth/me", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCheckHandler(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, false)

	check := func(cookie *http.Cookie) bool {
		req := httptest.NewRequest(http.MethodGet, "/auth/check", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := env.serve(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Authenticated bool `json:"authenticated"`
		}
		decodeJSON(t, rec, &resp)
		return resp.Authenticated
	}

	require.True(t, check(env.sessionCookie(t, user)))
	require.False(t, check(nil))
	require.False(t, check(&http.Cookie{Name: env.cookies.SessionName, Value: "garbage"}))
}

func TestApplicationsHandler(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, false)

	public, _ := env.seedApplication(t, true, "https://pub.example/cb")
	granted, _ := env.seedApplication(t, false, "https://granted.example/cb")
	env.seedApplication(t, false, "https://hidden.example/cb")

	require.NoError(t, env.store.AccessGrants().CreateAccessGrant(context.Background(), domain.AccessGrant{
		ID:            idx.New().String(),
		ApplicationID: granted.ID,
		SubjectType:   domain.GrantSubjectUser,
		SubjectID:     user.ID,
		CreatedAt:     time.Now().UTC(),
	}))

	t.Run("only reachable apps are listed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/applications", nil)
		req.AddCookie(env.sessionCookie(t, user))
		rec := env.serve(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []hubsdk.ApplicationSummary
		decodeJSON(t, rec, &resp)

		ids := make([]string, len(resp))
		for i, a := range resp {
			ids[i] = a.ID
		}
		require.ElementsMatch(t, []string{public.ID, granted.ID}, ids)
	})

	t.Run("no session", func(t *testing.T) {
		rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/applications", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
