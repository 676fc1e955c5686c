package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/severindevelopment/hub/internal/hub/domain"
	"github.com/severindevelopment/hub/pkg/cryptox"
)

// SSOConfig configures the OIDC relying-party side of the hub, pointed at
// the corporate ADFS issuer.
type SSOConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// SSOService is the bridge to the upstream identity provider. The hub is an
// OIDC relying party here: it sends users to ADFS, verifies the ID token
// that comes back, and normalizes its claims.
type SSOService struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth    oauth2.Config
	logger   *slog.Logger
}

// NewSSOService discovers the IdP's endpoints from its issuer URL.
func NewSSOService(ctx context.Context, cfg SSOConfig, logger *slog.Logger) (*SSOService, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("sso: discover provider %s: %w", cfg.IssuerURL, err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &SSOService{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		logger: logger,
	}, nil
}

// Login holds everything the HTTP layer needs to start an IdP round trip.
// StateToken and Nonce go into short-lived cookies so the callback can
// detect forged or replayed responses.
type Login struct {
	AuthURL    string
	StateToken string
	Nonce      string
}

// BeginLogin builds the IdP authorization URL. The post-login destination is
// packed into the state parameter alongside the CSRF token so it survives
// the round trip without server-side storage.
func (s *SSOService) BeginLogin(redirectTo string) (Login, error) {
	stateToken, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return Login{}, err
	}
	nonce, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return Login{}, err
	}

	state := stateToken + "|" + redirectTo

	return Login{
		AuthURL:    s.oauth.AuthCodeURL(state, oidc.Nonce(nonce)),
		StateToken: stateToken,
		Nonce:      nonce,
	}, nil
}

// ParseState splits a state parameter back into its CSRF token and the
// packed post-login destination.
func ParseState(state string) (stateToken, redirectTo string) {
	token, rest, found := strings.Cut(state, "|")
	if !found {
		return state, ""
	}
	return token, rest
}

// VerifyState compares the state token from the callback against the value
// stored in the browser cookie when the flow started.
func (s *SSOService) VerifyState(cookieToken, stateToken string) error {
	if cookieToken == "" || cookieToken != stateToken {
		return ErrSSOStateMismatch
	}
	return nil
}

// CompleteLogin exchanges the IdP's authorization code, verifies the ID
// token (issuer, audience, signature, expiry, nonce) and returns the
// normalized identity claims.
func (s *SSOService) CompleteLogin(ctx context.Context, code, expectedNonce string) (domain.SSOClaims, error) {
	token, err := s.exchangeCode(ctx, code)
	if err != nil {
		s.logger.Warn("sso code exchange failed", "err", err)
		return domain.SSOClaims{}, ErrSSOExchangeFailed
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return domain.SSOClaims{}, ErrSSOTokenInvalid
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		s.logger.Warn("sso id token verification failed", "err", err)
		return domain.SSOClaims{}, ErrSSOTokenInvalid
	}

	if expectedNonce == "" || idToken.Nonce != expectedNonce {
		return domain.SSOClaims{}, ErrSSOTokenInvalid
	}

	return extractClaims(idToken)
}

// exchangeCode performs the code-for-token exchange with a bounded timeout.
// Transport failures are retried once; an IdP rejection (any HTTP error
// response) is final.
func (s *SSOService) exchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	exchangeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	token, err := s.oauth.Exchange(exchangeCtx, code)
	if err == nil {
		return token, nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return nil, err
	}

	s.logger.Warn("sso code exchange transport error, retrying once", "err", err)

	retryCtx, cancelRetry := context.WithTimeout(ctx, 10*time.Second)
	defer cancelRetry()

	return s.oauth.Exchange(retryCtx, code)
}

// extractClaims normalizes the raw ID token claims. ADFS deployments differ
// in which claims they emit, so each field has a fallback chain.
func extractClaims(idToken *oidc.IDToken) (domain.SSOClaims, error) {
	var raw struct {
		Sub        string   `json:"sub"`
		OID        string   `json:"oid"`
		UPN        string   `json:"upn"`
		Email      string   `json:"email"`
		UniqueName string   `json:"unique_name"`
		Name       string   `json:"name"`
		GivenName  string   `json:"given_name"`
		FamilyName string   `json:"family_name"`
		MiddleName string   `json:"middle_name"`
		Department string   `json:"department"`
		JobTitle   string   `json:"jobTitle"`
		Title      string   `json:"title"`
		Groups     []string `json:"groups"`
	}
	if err := idToken.Claims(&raw); err != nil {
		return domain.SSOClaims{}, ErrSSOTokenInvalid
	}

	subject := firstNonEmpty(raw.Sub, raw.OID, raw.UPN)
	if subject == "" {
		return domain.SSOClaims{}, ErrSSOTokenInvalid
	}

	return domain.SSOClaims{
		Subject:    subject,
		Email:      firstNonEmpty(raw.Email, raw.UPN, raw.UniqueName),
		Name:       firstNonEmpty(raw.Name, raw.GivenName),
		FirstName:  raw.GivenName,
		LastName:   raw.FamilyName,
		MiddleName: raw.MiddleName,
		Department: raw.Department,
		JobTitle:   firstNonEmpty(raw.JobTitle, raw.Title),
		Groups:     raw.Groups,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
