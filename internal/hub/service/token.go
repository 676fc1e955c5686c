package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/pkg/cryptox"
	"github.com/severindevelopment/hub/pkg/idx"
	"github.com/severindevelopment/hub/pkg/jwtx"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenService implements the OAuth2 token endpoint grants and token
// introspection for the resource endpoints.
type TokenService struct {
	Store    store.Store
	Access   *AccessService
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ExchangeRequest captures the form fields of a token endpoint call.
type ExchangeRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	RefreshToken string
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return DefaultRefreshTokenTTL
}

// Exchange handles the token endpoint. Client authentication always runs
// first, before the grant is even looked at: a failed client must not learn
// anything about the code or refresh token it presented.
func (s *TokenService) Exchange(ctx context.Context, req ExchangeRequest) (*domain.TokenPair, error) {
	app, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		if errors.Is(err, ErrInvalidClient) {
			slogx.FromContext(ctx).Warn("client authentication failed", "client_id", req.ClientID)
		}
		return nil, err
	}

	switch req.GrantType {
	case "authorization_code":
		return s.exchangeAuthorizationCode(ctx, app, req)
	case "refresh_token":
		return s.exchangeRefreshToken(ctx, app, req)
	default:
		return nil, ErrUnsupportedGrantType
	}
}

// authenticateClient verifies client_id + client_secret against the argon2id
// hash. Every failure collapses to ErrInvalidClient so callers can't probe
// which part was wrong.
func (s *TokenService) authenticateClient(ctx context.Context, clientID, clientSecret string) (domain.Application, error) {
	if clientID == "" || clientSecret == "" {
		return domain.Application{}, ErrInvalidClient
	}

	app, err := s.Store.Applications().GetApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Application{}, ErrInvalidClient
		}
		return domain.Application{}, err
	}
	if !app.Active {
		return domain.Application{}, ErrInvalidClient
	}

	if err := cryptox.VerifySecret(clientSecret, app.ClientSecretHash); err != nil {
		return domain.Application{}, ErrInvalidClient
	}

	return app, nil
}

func (s *TokenService) exchangeAuthorizationCode(ctx context.Context, app domain.Application, req ExchangeRequest) (*domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	if req.Code == "" {
		return nil, ErrInvalidRequest
	}

	var pair *domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		code, err := tx.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(req.Code))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		// Non-consuming validations first: a code presented by the wrong
		// client, with the wrong redirect_uri, or after expiry fails without
		// burning it.
		if code.ApplicationID != app.ID {
			return ErrInvalidGrant
		}
		if code.RedirectURI != req.RedirectURI {
			log.Warn("authorization code redirect_uri mismatch",
				"client_id", app.ClientID,
				"code_id", code.ID,
			)
			return ErrInvalidGrant
		}
		if code.IsExpired(time.Now().UTC()) {
			log.Info("expired authorization code presented", "client_id", app.ClientID)
			return ErrInvalidGrant
		}

		// Single-use: the conditional update is the only consumer, so
		// concurrent redemptions of the same code let exactly one through.
		if err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("authorization code replay detected",
					"client_id", app.ClientID,
					"code_id", code.ID,
				)
				return ErrInvalidGrant
			}
			return err
		}

		user, err := tx.Users().GetUserByID(ctx, code.UserID)
		if err != nil {
			return ErrInvalidGrant
		}
		if !user.Active {
			return ErrInvalidGrant
		}

		pair, err = s.issuePair(ctx, tx, user, app, code.Scopes)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("authorization code exchanged", "client_id", app.ClientID)
	return pair, nil
}

func (s *TokenService) exchangeRefreshToken(ctx context.Context, app domain.Application, req ExchangeRequest) (*domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	if req.RefreshToken == "" {
		return nil, ErrInvalidRequest
	}

	var pair *domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.OAuthTokens().GetOAuthTokenByRefreshHash(ctx, cryptox.FingerprintToken(req.RefreshToken))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		if rec.ApplicationID != app.ID {
			return ErrInvalidGrant
		}
		if rec.IsRevoked() || rec.IsRefreshExpired(time.Now().UTC()) {
			return ErrInvalidGrant
		}

		user, err := tx.Users().GetUserByID(ctx, rec.UserID)
		if err != nil {
			return ErrInvalidGrant
		}
		if !user.Active {
			return ErrInvalidGrant
		}

		// Entitlement withdrawal takes effect at the next refresh, not at
		// refresh-token expiry.
		entitled, err := s.Access.IsEntitled(ctx, user, app)
		if err != nil {
			return err
		}
		if !entitled {
			return ErrInvalidGrant
		}

		// Rotate: the presented refresh token dies with this exchange.
		if err := tx.OAuthTokens().RevokeOAuthToken(ctx, rec.ID); err != nil {
			return err
		}

		pair, err = s.issuePair(ctx, tx, user, app, rec.Scopes)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("refresh token rotated", "client_id", app.ClientID)
	return pair, nil
}

// issuePair mints an access JWT plus opaque refresh token and persists
// their fingerprints as one revocable unit.
func (s *TokenService) issuePair(ctx context.Context, tx store.Tx, user domain.User, app domain.Application, scopes []string) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{app.ClientID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL())),
			ID:        jwtx.NewJTI(),
		},
		Typ:               jwtx.TokenTypeAccess,
		Scopes:            scopes,
		Email:             user.Email,
		Name:              user.Name,
		PreferredUsername: user.Email,
	}

	accessToken, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	refreshToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rec := domain.OAuthToken{
		ID:               idx.New().String(),
		UserID:           user.ID,
		ApplicationID:    app.ID,
		AccessTokenHash:  cryptox.FingerprintToken(accessToken),
		RefreshTokenHash: cryptox.FingerprintToken(refreshToken),
		Scopes:           scopes,
		AccessExpiresAt:  now.Add(s.accessTTL()),
		RefreshExpiresAt: now.Add(s.refreshTTL()),
		CreatedAt:        now,
	}
	if err := tx.OAuthTokens().CreateOAuthToken(ctx, rec); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL().Seconds()),
		Scope:        strings.Join(scopes, " "),
	}, nil
}

// ValidateAccessToken checks signature, expiry, type, revocation state and
// user state for a presented bearer token. Used by the userinfo endpoint.
func (s *TokenService) ValidateAccessToken(ctx context.Context, raw string) (domain.User, jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(raw)
	if err != nil {
		return domain.User{}, jwtx.Claims{}, ErrInvalidToken
	}
	if err := claims.ValidateType(jwtx.TokenTypeAccess); err != nil {
		return domain.User{}, jwtx.Claims{}, ErrInvalidToken
	}

	rec, err := s.Store.OAuthTokens().GetOAuthTokenByAccessHash(ctx, cryptox.FingerprintToken(raw))
	if err != nil {
		return domain.User{}, jwtx.Claims{}, ErrInvalidToken
	}
	if rec.IsRevoked() {
		return domain.User{}, jwtx.Claims{}, ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, rec.UserID)
	if err != nil || !user.Active {
		return domain.User{}, jwtx.Claims{}, ErrInvalidToken
	}

	return user, claims, nil
}

// Revoke implements RFC 7009: the client authenticates, the token (access
// or refresh) is looked up, and the whole pair is revoked. Unknown tokens
// and tokens owned by another application succeed silently; revocation must
// not be a probing oracle.
func (s *TokenService) Revoke(ctx context.Context, clientID, clientSecret, token string) error {
	app, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		if errors.Is(err, ErrInvalidClient) {
			slogx.FromContext(ctx).Warn("client authentication failed", "client_id", clientID)
		}
		return err
	}
	if token == "" {
		return nil
	}

	hash := cryptox.FingerprintToken(token)

	rec, err := s.Store.OAuthTokens().GetOAuthTokenByAccessHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		rec, err = s.Store.OAuthTokens().GetOAuthTokenByRefreshHash(ctx, hash)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	if rec.ApplicationID != app.ID {
		return nil
	}

	return s.Store.OAuthTokens().RevokeOAuthToken(ctx, rec.ID)
}
