package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	kit := newSigningKit(t)
	svc := &SessionService{
		Store:    st,
		Signer:   kit.signer,
		Verifier: kit.verifier,
		Issuer:   testIssuer,
	}

	user := seedUser(t, st, true)

	t.Run("round trip", func(t *testing.T) {
		token, err := svc.Issue(user)
		require.NoError(t, err)

		got, err := svc.Validate(ctx, token)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.Equal(t, user.Email, got.Email)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Validate(ctx, "not-a-session")
		require.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("expired session", func(t *testing.T) {
		short := &SessionService{
			Store:      st,
			Signer:     kit.signer,
			Verifier:   kit.verifier,
			Issuer:     testIssuer,
			SessionTTL: time.Nanosecond,
		}
		token, err := short.Issue(user)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)

		_, err = svc.Validate(ctx, token)
		require.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("access token is not a session", func(t *testing.T) {
		access := seedUser(t, st, true)
		app, secret := seedApplication(t, st, true, "https://app.example/cb")

		tokens := &TokenService{
			Store:    st,
			Access:   &AccessService{Store: st},
			Signer:   kit.signer,
			Verifier: kit.verifier,
			Issuer:   testIssuer,
		}
		authorize := &AuthorizeService{Store: st, Access: &AccessService{Store: st}}
		result, err := authorize.IssueAuthorizationCode(ctx, AuthorizeRequest{
			User:         access,
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

		_, err = svc.Validate(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("deactivated user is rejected mid-session", func(t *testing.T) {
		victim := seedUser(t, st, true)
		token, err := svc.Issue(victim)
		require.NoError(t, err)

		require.NoError(t, st.Users().SetActive(ctx, victim.ID, false))

		_, err = svc.Validate(ctx, token)
		require.ErrorIs(t, err, ErrUserInactive)
	})

	t.Run("deleted user is rejected", func(t *testing.T) {
		ghost := seedUser(t, st, true)
		token, err := svc.Issue(ghost)
		require.NoError(t, err)

		// Simulate a user record that no longer exists by issuing for an id
		// the store never saw.
		ghost.ID = "01JXXXXXXXXXXXXXXXXXXXXXXX"
		forged, err := svc.Issue(ghost)
		require.NoError(t, err)
		_, err = svc.Validate(ctx, forged)
		require.ErrorIs(t, err, ErrSessionInvalid)

		_, err = svc.Validate(ctx, token)
		require.NoError(t, err)
	})
}
