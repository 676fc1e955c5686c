package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/severindevelopment/hub/internal/hub/domain"
)

func TestGetOrCreateFromSSO(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &UserService{Store: st}

	claims := domain.SSOClaims{
		Subject:    "adfs-subject-1",
		Email:      "bob@corp.example",
		Name:       "Bob Builder",
		FirstName:  "Bob",
		LastName:   "Builder",
		Department: "Infrastructure",
		JobTitle:   "Architect",
		Groups:     []string{"CORP\\Engineering"},
	}

	t.Run("first login provisions", func(t *testing.T) {
		user, err := svc.GetOrCreateFromSSO(ctx, claims)
		require.NoError(t, err)
		require.NotEmpty(t, user.ID)
		require.Equal(t, "adfs-subject-1", user.SSOID)
		require.Equal(t, "bob@corp.example", user.Email)
		require.Equal(t, "Bob", user.FirstName)
		require.Equal(t, "Builder", user.LastName)
		require.Equal(t, "Infrastructure", user.Department)
		require.True(t, user.Active)

		stored, err := st.Users().GetUserBySSOID(ctx, "adfs-subject-1")
		require.NoError(t, err)
		require.Equal(t, user.ID, stored.ID)
		require.NotNil(t, stored.LastLoginAt)
	})

	t.Run("repeat login refreshes the profile", func(t *testing.T) {
		updated := claims
		updated.Name = "Robert Builder"
		updated.FirstName = "Robert"
		updated.Department = "Platform"
		updated.Groups = []string{"CORP\\Engineering", "CORP\\Architecture"}

		user, err := svc.GetOrCreateFromSSO(ctx, updated)
		require.NoError(t, err)

		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "Robert Builder", stored.Name)
		require.Equal(t, "Robert", stored.FirstName)
		require.Equal(t, "Platform", stored.Department)
		require.Equal(t, []string{"CORP\\Engineering", "CORP\\Architecture"}, stored.ADGroups)
	})

	t.Run("blank claims never clobber stored values", func(t *testing.T) {
		sparse := domain.SSOClaims{Subject: "adfs-subject-1"}

		user, err := svc.GetOrCreateFromSSO(ctx, sparse)
		require.NoError(t, err)

		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "bob@corp.example", stored.Email)
		require.Equal(t, "Robert Builder", stored.Name)
		require.Equal(t, "Robert", stored.FirstName)
		require.Equal(t, "Builder", stored.LastName)
		require.Equal(t, "Platform", stored.Department)
		require.Equal(t, "Architect", stored.JobTitle)
		require.NotEmpty(t, stored.ADGroups)
	})

	t.Run("deactivated user cannot sign in", func(t *testing.T) {
		stored, err := st.Users().GetUserBySSOID(ctx, "adfs-subject-1")
		require.NoError(t, err)
		require.NoError(t, st.Users().SetActive(ctx, stored.ID, false))

		_, err = svc.GetOrCreateFromSSO(ctx, claims)
		require.ErrorIs(t, err, ErrUserInactive)
	})
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	kit := newSigningKit(t)

	user := seedUser(t, st, true)
	app, secret := seedApplication(t, st, true, "https://app.example/cb")

	access := &AccessService{Store: st}
	authorize := &AuthorizeService{Store: st, Access: access}
	tokens := &TokenService{
		Store:    st,
		Access:   access,
		Signer:   kit.signer,
		Verifier: kit.verifier,
		Issuer:   testIssuer,
	}

	result, err := authorize.IssueAuthorizationCode(ctx, AuthorizeRequest{
		User:         user,
		ResponseType: "code",
		ClientID:     app.ClientID,
		RedirectURI:  "https://app.example/cb",
	})
	require.NoError(t, err)
	pair, err := tokens.Exchange(ctx, ExchangeRequest{
		GrantType:    "authorization_code",
		ClientID:     app.ClientID,
		ClientSecret: secret,
		Code:         result.Code,
		RedirectURI:  "https://app.example/cb",
	})
	require.NoError(t, err)

	svc := &UserService{Store: st}
	require.NoError(t, svc.Deactivate(ctx, user.ID))

	got, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, got.Active)

	// Live pairs die with the user.
	_, _, err = tokens.ValidateAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}
