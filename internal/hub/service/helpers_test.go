package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/internal/hub/store/drivers/sqlite"
	"github.com/severindevelopment/hub/pkg/cryptox"
	"github.com/severindevelopment/hub/pkg/idx"
	"github.com/severindevelopment/hub/pkg/jwtx"
)

const testIssuer = "http://hub.test"

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "hub.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

type signingKit struct {
	keys     *jwtx.KeySet
	signer   jwtx.Signer
	verifier jwtx.Verifier
}

func newSigningKit(t *testing.T) signingKit {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA(idx.New().String(), pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	return signingKit{
		keys:     keys,
		signer:   signer,
		verifier: jwtx.NewCommonEdDSA(keys, testIssuer, nil),
	}
}

func seedUser(t *testing.T, st store.Store, active bool) domain.User {
	t.Helper()

	now := time.Now().UTC()
	user := domain.User{
		ID:        idx.New().String(),
		SSOID:     "sso-" + idx.New().String(),
		Email:     "alice@corp.example",
		Name:      "Alice Example",
		JobTitle:  "Engineer",
		ADGroups:  []string{"CORP\\Engineering", "CORP\\All Staff"},
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))
	return user
}

// seedApplication registers an application and returns it together with the
// plaintext client secret.
func seedApplication(t *testing.T, st store.Store, public bool, redirectURIs ...string) (domain.Application, string) {
	t.Helper()

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	secretHash, err := cryptox.HashSecret(secret)
	require.NoError(t, err)

	now := time.Now().UTC()
	app := domain.Application{
		ID:               idx.New().String(),
		Slug:             "app-" + idx.New().String(),
		Name:             "Test App",
		ClientID:         "hub_" + idx.New().String(),
		ClientSecretHash: secretHash,
		RedirectURIs:     redirectURIs,
		Public:           public,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, st.Applications().CreateApplication(context.Background(), app))
	return app, secret
}

func seedUserGrant(t *testing.T, st store.Store, app domain.Application, user domain.User) {
	t.Helper()
	require.NoError(t, st.AccessGrants().CreateAccessGrant(context.Background(), domain.AccessGrant{
		ID:            idx.New().String(),
		ApplicationID: app.ID,
		SubjectType:   domain.GrantSubjectUser,
		SubjectID:     user.ID,
		CreatedAt:     time.Now().UTC(),
	}))
}

func seedGroupWithMember(t *testing.T, st store.Store, user domain.User) domain.Group {
	t.Helper()

	ctx := context.Background()
	group := domain.Group{
		ID:        idx.New().String(),
		Name:      "group-" + idx.New().String(),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.Groups().CreateGroup(ctx, group))
	require.NoError(t, st.Groups().AddMember(ctx, group.ID, user.ID))
	return group
}

func seedGroupGrant(t *testing.T, st store.Store, app domain.Application, group domain.Group) {
	t.Helper()
	require.NoError(t, st.AccessGrants().CreateAccessGrant(context.Background(), domain.AccessGrant{
		ID:            idx.New().String(),
		ApplicationID: app.ID,
		SubjectType:   domain.GrantSubjectGroup,
		SubjectID:     group.ID,
		CreatedAt:     time.Now().UTC(),
	}))
}
