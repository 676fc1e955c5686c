package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/pkg/cryptox"
	"github.com/severindevelopment/hub/pkg/idx"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// DefaultCodeTTL is the authorization code lifetime.
const DefaultCodeTTL = 10 * time.Minute

// SupportedScopes is the fixed scope vocabulary of the hub. Downstream apps
// only ever need identity, so there is no per-application scope model.
var SupportedScopes = []string{"openid", "profile", "email"}

// AuthorizeService issues single-use authorization codes for entitled users.
type AuthorizeService struct {
	Store   store.Store
	Access  *AccessService
	CodeTTL time.Duration
}

// AuthorizeRequest captures the validated inputs to the authorize endpoint.
// User is the session user; authentication happened before this point.
type AuthorizeRequest struct {
	User         domain.User
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        []string
	State        string
}

// AuthorizeResult carries the minted code and the redirect target.
type AuthorizeResult struct {
	Code        string
	RedirectURI string
	State       string
}

func (s *AuthorizeService) ttl() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return DefaultCodeTTL
}

// ValidateClient checks client_id and redirect_uri without touching the
// session. The authorize handler runs this before bouncing an unauthenticated
// user to SSO login, so a broken client link fails fast instead of after a
// full IdP round trip.
func (s *AuthorizeService) ValidateClient(ctx context.Context, clientID, redirectURI string) error {
	app, err := s.Store.Applications().GetApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidClient
		}
		return err
	}
	if !app.Active {
		return ErrInvalidClient
	}
	if redirectURI == "" || !app.IsRedirectURIAllowed(redirectURI) {
		return ErrInvalidRedirectURI
	}
	return nil
}

// IssueAuthorizationCode validates the request and mints a code.
//
// Validation order matters for how errors are surfaced: client and
// redirect_uri problems must never cause a redirect (the target can't be
// trusted yet), so they are checked first. Everything after that point may
// be reported to the client via the redirect URI.
//
// Returns:
//   - ErrInvalidClient for an unknown or inactive client_id
//   - ErrInvalidRedirectURI when the redirect_uri is not registered
//   - ErrUnsupportedResponseType for anything but response_type=code
//   - ErrInvalidScope when a requested scope is outside the supported set
//   - ErrAccessDenied when the user is not entitled to the application
func (s *AuthorizeService) IssueAuthorizationCode(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	log := slogx.FromContext(ctx)

	app, err := s.Store.Applications().GetApplicationByClientID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if !app.Active {
		return nil, ErrInvalidClient
	}

	if req.RedirectURI == "" || !app.IsRedirectURIAllowed(req.RedirectURI) {
		return nil, ErrInvalidRedirectURI
	}

	if req.ResponseType != "code" {
		return nil, ErrUnsupportedResponseType
	}

	scopes := req.Scope
	if len(scopes) == 0 {
		scopes = SupportedScopes
	}
	for _, sc := range scopes {
		if !slices.Contains(SupportedScopes, sc) {
			return nil, ErrInvalidScope
		}
	}

	entitled, err := s.Access.IsEntitled(ctx, req.User, app)
	if err != nil {
		return nil, err
	}
	if !entitled {
		log.Warn("authorization denied",
			"user_id", req.User.ID,
			"client_id", req.ClientID,
		)
		return nil, ErrAccessDenied
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := domain.AuthorizationCode{
		ID:            idx.New().String(),
		CodeHash:      cryptox.FingerprintToken(code),
		UserID:        req.User.ID,
		ApplicationID: app.ID,
		RedirectURI:   req.RedirectURI,
		Scopes:        scopes,
		ExpiresAt:     now.Add(s.ttl()),
		CreatedAt:     now,
	}
	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
		return nil, err
	}

	log.Info("authorization code issued",
		"user_id", req.User.ID,
		"client_id", req.ClientID,
	)

	return &AuthorizeResult{
		Code:        code,
		RedirectURI: req.RedirectURI,
		State:       req.State,
	}, nil
}
