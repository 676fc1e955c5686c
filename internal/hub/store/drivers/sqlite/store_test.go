package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(DSN(filepath.Join(t.TempDir(), "hub.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestDSN(t *testing.T) {
	dsn := DSN("/var/lib/hub/hub.db")

	require.Contains(t, dsn, "file:/var/lib/hub/hub.db?")
	require.Contains(t, dsn, "_pragma=busy_timeout(5000)")
	require.Contains(t, dsn, "_pragma=journal_mode(WAL)")
	require.Contains(t, dsn, "_pragma=foreign_keys(1)")

	// The mattn-style keys do nothing under modernc.org/sqlite; their
	// presence would mean no busy timeout and SQLITE_BUSY under write
	// contention.
	require.NotContains(t, dsn, "_busy_timeout=")
	require.NotContains(t, dsn, "_journal_mode=")
}

func seedUser(t *testing.T, st *Store) domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.User{
		ID:         idx.New().String(),
		SSOID:      "sso-" + idx.New().String(),
		Email:      "dave@corp.example",
		Name:       "Dave Example",
		FirstName:  "Dave",
		LastName:   "Example",
		Department: "Operations",
		ADGroups:   []string{"CORP\\All Staff"},
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func seedApplication(t *testing.T, st *Store) domain.Application {
	t.Helper()
	now := time.Now().UTC()
	a := domain.Application{
		ID:               idx.New().String(),
		Slug:             "app-" + idx.New().String(),
		Name:             "Test App",
		ClientID:         "hub_" + idx.New().String(),
		ClientSecretHash: "unused",
		RedirectURIs:     []string{"https://app.example/cb"},
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, st.Applications().CreateApplication(context.Background(), a))
	return a
}

func TestConsumeAuthorizationCode(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st)
	app := seedApplication(t, st)

	seedCode := func(t *testing.T) domain.AuthorizationCode {
		t.Helper()
		now := time.Now().UTC()
		code := domain.AuthorizationCode{
			ID:            idx.New().String(),
			CodeHash:      "hash-" + idx.New().String(),
			UserID:        user.ID,
			ApplicationID: app.ID,
			RedirectURI:   "https://app.example/cb",
			Scopes:        []string{"openid"},
			ExpiresAt:     now.Add(10 * time.Minute),
			CreatedAt:     now,
		}
		require.NoError(t, st.AuthorizationCodes().CreateAuthorizationCode(ctx, code))
		return code
	}

	t.Run("marks used exactly once", func(t *testing.T) {
		code := seedCode(t)

		require.NoError(t, st.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID))

		got, err := st.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, code.CodeHash)
		require.NoError(t, err)
		require.True(t, got.IsUsed())

		err = st.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent consumers admit one", func(t *testing.T) {
		code := seedCode(t)

		const workers = 8
		results := make([]error, workers)

		var start, done sync.WaitGroup
		start.Add(1)
		done.Add(workers)
		for i := 0; i < workers; i++ {
			go func(i int) {
				defer done.Done()
				start.Wait()
				results[i] = st.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID)
			}(i)
		}
		start.Done()
		done.Wait()

		var won int
		for _, err := range results {
			if err == nil {
				won++
			} else {
				require.ErrorIs(t, err, store.ErrNotFound)
			}
		}
		require.Equal(t, 1, won)
	})

	t.Run("unknown code", func(t *testing.T) {
		err := st.AuthorizationCodes().ConsumeAuthorizationCode(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRevokeOAuthTokenKeepsFirstTimestamp(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st)
	app := seedApplication(t, st)

	now := time.Now().UTC()
	rec := domain.OAuthToken{
		ID:               idx.New().String(),
		UserID:           user.ID,
		ApplicationID:    app.ID,
		AccessTokenHash:  "at-1",
		RefreshTokenHash: "rt-1",
		Scopes:           []string{"openid", "profile"},
		AccessExpiresAt:  now.Add(time.Hour),
		RefreshExpiresAt: now.Add(24 * time.Hour),
		CreatedAt:        now,
	}
	require.NoError(t, st.OAuthTokens().CreateOAuthToken(ctx, rec))

	require.NoError(t, st.OAuthTokens().RevokeOAuthToken(ctx, rec.ID))
	first, err := st.OAuthTokens().GetOAuthTokenByAccessHash(ctx, "at-1")
	require.NoError(t, err)
	require.NotNil(t, first.RevokedAt)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, st.OAuthTokens().RevokeOAuthToken(ctx, rec.ID))
	second, err := st.OAuthTokens().GetOAuthTokenByAccessHash(ctx, "at-1")
	require.NoError(t, err)
	require.Equal(t, *first.RevokedAt, *second.RevokedAt)
}

func TestRevokeAllUserApplicationTokens(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st)
	app := seedApplication(t, st)
	other := seedApplication(t, st)

	now := time.Now().UTC()
	mk := func(appID, suffix string) {
		require.NoError(t, st.OAuthTokens().CreateOAuthToken(ctx, domain.OAuthToken{
			ID:               idx.New().String(),
			UserID:           user.ID,
			ApplicationID:    appID,
			AccessTokenHash:  "at-" + suffix,
			RefreshTokenHash: "rt-" + suffix,
			AccessExpiresAt:  now.Add(time.Hour),
			RefreshExpiresAt: now.Add(24 * time.Hour),
			CreatedAt:        now,
		}))
	}
	mk(app.ID, "a")
	mk(app.ID, "b")
	mk(other.ID, "c")

	require.NoError(t, st.OAuthTokens().RevokeAllUserApplicationTokens(ctx, user.ID, app.ID))

	for suffix, wantRevoked := range map[string]bool{"a": true, "b": true, "c": false} {
		got, err := st.OAuthTokens().GetOAuthTokenByAccessHash(ctx, "at-"+suffix)
		require.NoError(t, err)
		require.Equal(t, wantRevoked, got.IsRevoked(), "token %s", suffix)
	}
}

func TestHasGrant(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st)
	app := seedApplication(t, st)

	require.NoError(t, st.AccessGrants().CreateAccessGrant(ctx, domain.AccessGrant{
		ID:            idx.New().String(),
		ApplicationID: app.ID,
		SubjectType:   domain.GrantSubjectUser,
		SubjectID:     user.ID,
		CreatedAt:     time.Now().UTC(),
	}))

	ok, err := st.AccessGrants().HasGrant(ctx, app.ID, domain.GrantSubjectUser, []string{user.ID})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.AccessGrants().HasGrant(ctx, app.ID, domain.GrantSubjectUser, []string{"someone-else"})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = st.AccessGrants().HasGrant(ctx, app.ID, domain.GrantSubjectGroup, []string{user.ID})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = st.AccessGrants().HasGrant(ctx, app.ID, domain.GrantSubjectUser, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListEntitledApplicationIDs(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st)
	direct := seedApplication(t, st)
	viaGroup := seedApplication(t, st)
	seedApplication(t, st) // never granted

	group := domain.Group{ID: idx.New().String(), Name: "eng", CreatedAt: time.Now().UTC()}
	require.NoError(t, st.Groups().CreateGroup(ctx, group))
	require.NoError(t, st.Groups().AddMember(ctx, group.ID, user.ID))

	grant := func(appID, subjectType, subjectID string) {
		require.NoError(t, st.AccessGrants().CreateAccessGrant(ctx, domain.AccessGrant{
			ID:            idx.New().String(),
			ApplicationID: appID,
			SubjectType:   subjectType,
			SubjectID:     subjectID,
			CreatedAt:     time.Now().UTC(),
		}))
	}
	grant(direct.ID, domain.GrantSubjectUser, user.ID)
	grant(viaGroup.ID, domain.GrantSubjectGroup, group.ID)

	ids, err := st.AccessGrants().ListEntitledApplicationIDs(ctx, user.ID, []string{group.ID})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{direct.ID, viaGroup.ID}, ids)

	// Without group context only the direct grant shows.
	ids, err = st.AccessGrants().ListEntitledApplicationIDs(ctx, user.ID, nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{direct.ID}, ids)
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	user := seedUser(t, st)

	got, err := st.Users().GetUserBySSOID(ctx, user.SSOID)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, user.FirstName, got.FirstName)
	require.Equal(t, user.LastName, got.LastName)
	require.Equal(t, user.Department, got.Department)
	require.Equal(t, user.ADGroups, got.ADGroups)
	require.Nil(t, got.LastLoginAt)

	got.Department = "Platform Operations"
	require.NoError(t, st.Users().UpdateUserProfile(ctx, got))
	got, err = st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Platform Operations", got.Department)

	require.NoError(t, st.Users().TouchLastLogin(ctx, user.ID))
	got, err = st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)

	_, err = st.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sentinel := fmt.Errorf("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		g := domain.Group{ID: idx.New().String(), Name: "doomed", CreatedAt: time.Now().UTC()}
		if err := tx.Groups().CreateGroup(ctx, g); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = st.Groups().GetGroupByName(ctx, "doomed")
	require.ErrorIs(t, err, store.ErrNotFound)
}
