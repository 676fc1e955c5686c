package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/pkg/jwtx"
)

// DefaultSessionTTL is how long a browser session cookie stays valid.
// Short on purpose: re-login rides the IdP's own SSO session and is
// invisible to the user.
const DefaultSessionTTL = time.Hour

// SessionService issues and validates the signed session JWTs carried in the
// hub's browser cookie. Sessions are stateless: validity comes from the
// signature and expiry, plus an active-user check on every validation.
type SessionService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Verifier   jwtx.Verifier
	Issuer     string
	SessionTTL time.Duration
}

func (s *SessionService) ttl() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return DefaultSessionTTL
}

// Issue creates a session token for the user. The "typ" claim pins it as a
// session token so it can never be replayed against the API as a bearer token.
func (s *SessionService) Issue(user domain.User) (string, error) {
	now := time.Now().UTC()

	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
			ID:        jwtx.NewJTI(),
		},
		Typ:   jwtx.TokenTypeSession,
		Email: user.Email,
		Name:  user.Name,
	}

	return s.Signer.Sign(claims)
}

// Validate verifies a session token and returns the current user record.
// The user is re-read from the store so deactivation takes effect on the
// next request, not at cookie expiry.
func (s *SessionService) Validate(ctx context.Context, token string) (domain.User, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwtx.ErrExpired) {
			return domain.User{}, ErrSessionExpired
		}
		return domain.User{}, ErrSessionInvalid
	}
	if err := claims.ValidateType(jwtx.TokenTypeSession); err != nil {
		return domain.User{}, ErrSessionInvalid
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrSessionInvalid
		}
		return domain.User{}, err
	}

	if !user.Active {
		return domain.User{}, ErrUserInactive
	}

	return user, nil
}
