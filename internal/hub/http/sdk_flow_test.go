package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/severindevelopment/hub/pkg/hubsdk"
)

// TestSDKAgainstLiveServer runs the downstream-application SDK against a
// real listener so the whole stack, router and middleware included, is on
// the wire path.
func TestSDKAgainstLiveServer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	user := env.seedUser(t, false)
	app, secret := env.seedApplication(t, true, "https://app.example/cb")

	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	client := hubsdk.NewClient(srv.URL)

	t.Run("discovery", func(t *testing.T) {
		doc, err := client.Discovery(ctx)
		require.NoError(t, err)
		require.Equal(t, testIssuer, doc.Issuer)
	})

	var accessToken, refreshToken string
	t.Run("code exchange", func(t *testing.T) {
		code := env.obtainCode(t, user, app, "https://app.example/cb")

		tok, err := client.ExchangeCode(ctx, app.ClientID, secret, code, "https://app.example/cb")
		require.NoError(t, err)
		require.Equal(t, "Bearer", tok.TokenType)
		accessToken, refreshToken = tok.AccessToken, tok.RefreshToken
	})

	t.Run("userinfo", func(t *testing.T) {
		info, err := client.UserInfo(ctx, accessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, info.Sub)
		require.Equal(t, user.Email, info.Email)
	})

	t.Run("refresh rotates", func(t *testing.T) {
		tok, err := client.Refresh(ctx, app.ClientID, secret, refreshToken)
		require.NoError(t, err)
		require.NotEqual(t, refreshToken, tok.RefreshToken)

		// The rotated-out refresh token surfaces as a typed OAuth2 error.
		_, err = client.Refresh(ctx, app.ClientID, secret, refreshToken)
		var oauthErr *hubsdk.OAuth2Error
		require.ErrorAs(t, err, &oauthErr)
		require.Equal(t, hubsdk.ErrorCodeInvalidGrant, oauthErr.Code)

		accessToken, refreshToken = tok.AccessToken, tok.RefreshToken
	})

	t.Run("revoke", func(t *testing.T) {
		require.NoError(t, client.Revoke(ctx, app.ClientID, secret, refreshToken))

		_, err := client.UserInfo(ctx, accessToken)
		var oauthErr *hubsdk.OAuth2Error
		require.True(t, errors.As(err, &oauthErr))
		require.Equal(t, hubsdk.ErrorCodeInvalidToken, oauthErr.Code)
	})
}
