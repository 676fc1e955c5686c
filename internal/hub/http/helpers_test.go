package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/internal/hub/store/drivers/sqlite"
	"github.com/severindevelopment/hub/pkg/cryptox"
	"github.com/severindevelopment/hub/pkg/idx"
	"github.com/severindevelopment/hub/pkg/jwtx"
)

const testIssuer = "http://hub.test"

// testEnv is a fully wired router over a throwaway database, mirroring how
// the application assembles its dependencies.
type testEnv struct {
	store    store.Store
	router   *Router
	sessions *service.SessionService
	tokens   *service.TokenService
	cookies  CookieConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "hub.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA(idx.New().String(), pemKey)
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewCommonEdDSA(keys, testIssuer, nil)

	cookies := CookieConfig{
		SessionName: "hub_session",
		SessionTTL:  time.Hour,
	}

	access := &service.AccessService{Store: st}
	sessions := &service.SessionService{Store: st, Signer: signer, Verifier: verifier, Issuer: testIssuer}
	tokens := &service.TokenService{Store: st, Access: access, Signer: signer, Verifier: verifier, Issuer: testIssuer}

	logger := slog.New(slog.DiscardHandler)
	router := NewRouter(keys, verifier, testIssuer, "test", cookies, st, logger)
	router.SessionService = sessions
	router.UserService = &service.UserService{Store: st}
	router.AccessService = access
	router.AuthorizeService = &service.AuthorizeService{Store: st, Access: access}
	router.TokenService = tokens
	router.ApplicationService = &service.ApplicationService{Store: st}
	router.GroupService = &service.GroupService{Store: st}
	router.ApplyRoutes()

	return &testEnv{
		store:    st,
		router:   router,
		sessions: sessions,
		tokens:   tokens,
		cookies:  cookies,
	}
}

func (e *testEnv) seedUser(t *testing.T, admin bool) domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.User{
		ID:         idx.New().String(),
		SSOID:      "sso-" + idx.New().String(),
		Email:      "erin@corp.example",
		Name:       "Erin Example",
		FirstName:  "Erin",
		LastName:   "Example",
		Department: "Engineering",
		ADGroups:   []string{"CORP\\All Staff"},
		Active:     true,
		Admin:      admin,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, e.store.Users().CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) seedApplication(t *testing.T, public bool, redirectURIs ...string) (domain.Application, string) {
	t.Helper()
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	hash, err := cryptox.HashSecret(secret)
	require.NoError(t, err)

	now := time.Now().UTC()
	a := domain.Application{
		ID:               idx.New().String(),
		Slug:             "app-" + idx.New().String(),
		Name:             "Test App",
		ClientID:         "hub_" + idx.New().String(),
		ClientSecretHash: hash,
		RedirectURIs:     redirectURIs,
		Public:           public,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, e.store.Applications().CreateApplication(context.Background(), a))
	return a, secret
}

// sessionCookie mints a valid session for the user, the way the SSO
// callback would.
func (e *testEnv) sessionCookie(t *testing.T, user domain.User) *http.Cookie {
	t.Helper()
	token, err := e.sessions.Issue(user)
	require.NoError(t, err)
	return &http.Cookie{Name: e.cookies.SessionName, Value: token}
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// requireOAuthError asserts the RFC 6749 error code in the response body.
func requireOAuthError(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	require.Equal(t, code, resp.Error)
}
