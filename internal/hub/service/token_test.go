package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/store"
)

// tokenFixture wires the services the way the application does and seeds an
// entitled user plus a confidential client.
type tokenFixture struct {
	store     store.Store
	authorize *AuthorizeService
	tokens    *TokenService
	user      domain.User
	app       domain.Application
	secret    string
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()

	st := newTestStore(t)
	kit := newSigningKit(t)
	access := &AccessService{Store: st}

	user := seedUser(t, st, true)
	app, secret := seedApplication(t, st, false, "https://app.example/cb")
	seedUserGrant(t, st, app, user)

	return &tokenFixture{
		store:     st,
		authorize: &AuthorizeService{Store: st, Access: access},
		tokens: &TokenService{
			Store:    st,
			Access:   access,
			Signer:   kit.signer,
			Verifier: kit.verifier,
			Issuer:   testIssuer,
		},
		user:   user,
		app:    app,
		secret: secret,
	}
}

func (f *tokenFixture) mintCode(t *testing.T) string {
	t.Helper()
	result, err := f.authorize.IssueAuthorizationCode(context.Background(), AuthorizeRequest{
		User:         f.user,
		ResponseType: "code",
		ClientID:     f.app.ClientID,
		RedirectURI:  "https://app.example/cb",
	})
	require.NoError(t, err)
	return result.Code
}

func (f *tokenFixture) exchangeCode(code string) (*domain.TokenPair, error) {
	return f.tokens.Exchange(context.Background(), ExchangeRequest{
		GrantType:    "authorization_code",
		ClientID:     f.app.ClientID,
		ClientSecret: f.secret,
		Code:         code,
		RedirectURI:  "https://app.example/cb",
	})
}

func TestExchangeAuthorizationCode(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		f := newTokenFixture(t)
		code := f.mintCode(t)

		pair, err := f.exchangeCode(code)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, int(DefaultAccessTokenTTL.Seconds()), pair.ExpiresIn)
		require.Equal(t, strings.Join(SupportedScopes, " "), pair.Scope)

		user, claims, err := f.tokens.ValidateAccessToken(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, f.user.ID, user.ID)
		require.Equal(t, f.user.ID, claims.Subject)
		require.Contains(t, claims.Audience, f.app.ClientID)
		require.Equal(t, SupportedScopes, claims.Scopes)
	})

	t.Run("code is single use", func(t *testing.T) {
		f := newTokenFixture(t)
		code := f.mintCode(t)

		_, err := f.exchangeCode(code)
		require.NoError(t, err)

		_, err = f.exchangeCode(code)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("concurrent redemptions admit exactly one", func(t *testing.T) {
		f := newTokenFixture(t)
		code := f.mintCode(t)

		const workers = 8
		results := make([]error, workers)

		var start, done sync.WaitGroup
		start.Add(1)
		done.Add(workers)
		for i := 0; i < workers; i++ {
			go func(i int) {
				defer done.Done()
				start.Wait()
				_, results[i] = f.exchangeCode(code)
			}(i)
		}
		start.Done()
		done.Wait()

		var won int
		for _, err := range results {
			if err == nil {
				won++
			} else {
				require.ErrorIs(t, err, ErrInvalidGrant)
			}
		}
		require.Equal(t, 1, won)
	})

	t.Run("expired code", func(t *testing.T) {
		f := newTokenFixture(t)
		f.authorize.CodeTTL = time.Nanosecond
		code := f.mintCode(t)

		_, err := f.exchangeCode(code)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("redirect_uri must match the one the code was bound to", func(t *testing.T) {
		f := newTokenFixture(t)
		code := f.mintCode(t)

		_, err := f.tokens.Exchange(ctx, ExchangeRequest{
			GrantType:    "authorization_code",
			ClientID:     f.app.ClientID,
			ClientSecret: f.secret,
			Code:         code,
			RedirectURI:  "https://app.example/other",
		})
		require.ErrorIs(t, err, ErrInvalidGrant)

		// The mismatch did not burn the code.
		_, err = f.exchangeCode(code)
		require.NoError(t, err)
	})

	t.Run("code issued to another client", func(t *testing.T) {
		f := newTokenFixture(t)
		code := f.mintCode(t)

		other, otherSecret := seedApplication(t, f.store, false, "https://app.example/cb")
		_, err := f.tokens.Exchange(ctx, ExchangeRequest{
			GrantType:    "authorization_code",
			ClientID:     other.ClientID,
			ClientSecret: otherSecret,
			Code:         code,
			RedirectURI:  "https://app.example/cb",
		})
		require.ErrorIs(t, err, ErrInvalidGrant)

		_, err = f.exchangeCode(code)
		require.NoError(t, err)
	})

	t.Run("client auth failure precedes redemption", func(t *testing.T) {
		f := newTokenFixture(t)
		code := f.mintCode(t)

		_, err := f.tokens.Exchange(ctx, ExchangeRequest{
			GrantType:    "authorization_code",
			ClientID:     f.app.ClientID,
			ClientSecret: "wrong",
			Code:         code,
			RedirectURI:  "https://app.example/cb",
		})
		require.ErrorIs(t, err, ErrInvalidClient)

		// The failed attempt never touched the code.
		_, err = f.exchangeCode(code)
		require.NoError(t, err)
	})

	t.Run("unknown client", func(t *testing.T) {
		f := newTokenFixture(t)
		_, err := f.tokens.Exchange(ctx, ExchangeRequest{
			GrantType:    "authorization_code",
			ClientID:     "hub_unknown",
			ClientSecret: "whatever",
			Code:         "irrelevant",
			RedirectURI:  "https://app.example/cb",
		})
		require.ErrorIs(t, err, ErrInvalidClient)
	})

	t.Run("unsupported grant type", func(t *testing.T) {
		f := newTokenFixture(t)
		_, err := f.tokens.Exchange(ctx, ExchangeRequest{
			GrantType:    "password",
			ClientID:     f.app.ClientID,
			ClientSecret: f.secret,
		})
		require.ErrorIs(t, err, ErrUnsupportedGrantType)
	})

	t.Run("missing code", func(t *testing.T) {
		f := newTokenFixture(t)
		_, err := f.tokens.Exchange(ctx, ExchangeRequest{
			GrantType:    "authorization_code",
			ClientID:     f.app.ClientID,
			ClientSecret: f.secret,
			RedirectURI:  "https://app.example/cb",
		})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("deactivated user cannot redeem", func(t *testing.T) {
		f := newTokenFixture(t)
		code := f.mintCode(t)

		require.NoError(t, f.store.Users().SetActive(ctx, f.user.ID, false))

		_, err := f.exchangeCode(code)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})
}

func TestExchangeRefreshToken(t *testing.T) {
	ctx := context.Background()

	refresh := func(f *tokenFixture, token string) (*domain.TokenPair, error) {
		return f.tokens.Exchange(ctx, ExchangeRequest{
			GrantType:    "refresh_token",
			ClientID:     f.app.ClientID,
			ClientSecret: f.secret,
			RefreshToken: token,
		})
	}

	t.Run("rotation invalidates the presented token", func(t *testing.T) {
		f := newTokenFixture(t)
		first, err := f.exchangeCode(f.mintCode(t))
		require.NoError(t, err)

		second, err := refresh(f, first.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)
		require.NotEqual(t, first.AccessToken, second.AccessToken)

		// The old pair is dead on both halves.
		_, err = refresh(f, first.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidGrant)
		_, _, err = f.tokens.ValidateAccessToken(ctx, first.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)

		// The new pair works.
		_, _, err = f.tokens.ValidateAccessToken(ctx, second.AccessToken)
		require.NoError(t, err)
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		f := newTokenFixture(t)
		_, err := refresh(f, "not-a-token")
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("refresh token of another client", func(t *testing.T) {
		f := newTokenFixture(t)
		pair, err := f.exchangeCode(f.mintCode(t))
		require.NoError(t, err)

		other, otherSecret := seedApplication(t, f.store, false, "https://app.example/cb")
		_, err = f.tokens.Exchange(ctx, ExchangeRequest{
			GrantType:    "refresh_token",
			ClientID:     other.ClientID,
			ClientSecret: otherSecret,
			RefreshToken: pair.RefreshToken,
		})
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("revoked pair cannot refresh", func(t *testing.T) {
		f := newTokenFixture(t)
		pair, err := f.exchangeCode(f.mintCode(t))
		require.NoError(t, err)

		require.NoError(t, f.tokens.Revoke(ctx, f.app.ClientID, f.secret, pair.RefreshToken))

		_, err = refresh(f, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("entitlement withdrawal bites at refresh", func(t *testing.T) {
		f := newTokenFixture(t)
		pair, err := f.exchangeCode(f.mintCode(t))
		require.NoError(t, err)

		grants, err := f.store.AccessGrants().ListGrantsForApplication(ctx, f.app.ID)
		require.NoError(t, err)
		require.Len(t, grants, 1)
		require.NoError(t, f.store.AccessGrants().DeleteAccessGrant(ctx, grants[0].ID))

		_, err = refresh(f, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("deactivated user cannot refresh", func(t *testing.T) {
		f := newTokenFixture(t)
		pair, err := f.exchangeCode(f.mintCode(t))
		require.NoError(t, err)

		require.NoError(t, f.store.Users().SetActive(ctx, f.user.ID, false))

		_, err = refresh(f, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidGrant)
	})
}

func TestValidateAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked access token is rejected before expiry", func(t *testing.T) {
		f := newTokenFixture(t)
		pair, err := f.exchangeCode(f.mintCode(t))
		require.NoError(t, err)

		require.NoError(t, f.tokens.Revoke(ctx, f.app.ClientID, f.secret, pair.AccessToken))

		_, _, err = f.tokens.ValidateAccessToken(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("session token is not a bearer token", func(t *testing.T) {
		f := newTokenFixture(t)
		kit := newSigningKit(t)
		f.tokens.Signer = kit.signer
		f.tokens.Verifier = kit.verifier

		sessions := &SessionService{
			Store:    f.store,
			Signer:   kit.signer,
			Verifier: kit.verifier,
			Issuer:   testIssuer,
		}
		token, err := sessions.Issue(f.user)
		require.NoError(t, err)

		_, _, err = f.tokens.ValidateAccessToken(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		f := newTokenFixture(t)
		_, _, err := f.tokens.ValidateAccessToken(ctx, "not.a.jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown token succeeds silently", func(t *testing.T) {
		f := newTokenFixture(t)
		require.NoError(t, f.tokens.Revoke(ctx, f.app.ClientID, f.secret, "never-issued"))
	})

	t.Run("empty token is a no-op", func(t *testing.T) {
		f := newTokenFixture(t)
		require.NoError(t, f.tokens.Revoke(ctx, f.app.ClientID, f.secret, ""))
	})

	t.Run("client auth failure is reported", func(t *testing.T) {
		f := newTokenFixture(t)
		err := f.tokens.Revoke(ctx, f.app.ClientID, "wrong", "anything")
		require.ErrorIs(t, err, ErrInvalidClient)
	})

	t.Run("another client's token is left untouched", func(t *testing.T) {
		f := newTokenFixture(t)
		pair, err := f.exchangeCode(f.mintCode(t))
		require.NoError(t, err)

		other, otherSecret := seedApplication(t, f.store, false, "https://app.example/cb")
		require.NoError(t, f.tokens.Revoke(ctx, other.ClientID, otherSecret, pair.AccessToken))

		// Still valid for its owner.
		_, _, err = f.tokens.ValidateAccessToken(ctx, pair.AccessToken)
		require.NoError(t, err)
	})

	t.Run("revoking either half kills the pair, repeatably", func(t *testing.T) {
		f := newTokenFixture(t)
		pair, err := f.exchangeCode(f.mintCode(t))
		require.NoError(t, err)

		require.NoError(t, f.tokens.Revoke(ctx, f.app.ClientID, f.secret, pair.RefreshToken))
		require.NoError(t, f.tokens.Revoke(ctx, f.app.ClientID, f.secret, pair.RefreshToken))

		_, _, err = f.tokens.ValidateAccessToken(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
