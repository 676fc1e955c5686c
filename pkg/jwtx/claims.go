package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators carried in the "typ" claim. A session cookie JWT
// must never be accepted as an API access token, and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeSession = "session"
)

// Claims are the JWT claims used across the service. Keep changes additive
// to preserve compatibility with already-issued tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Typ discriminates session tokens from access tokens.
	Typ string `json:"typ,omitempty"`

	// Scopes granted to this token, e.g. ["openid", "profile", "email"].
	Scopes []string `json:"scopes,omitempty"`

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// Name is the display name of the authenticated user.
	Name string `json:"name,omitempty"`

	// PreferredUsername mirrors the OIDC claim of the same name.
	PreferredUsername string `json:"preferred_username,omitempty"`

	// Groups are the directory groups the user belonged to at sign-in.
	Groups []string `json:"groups,omitempty"`
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it becomes valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateType enforces the "typ" discriminator.
func (c *Claims) ValidateType(expected string) error {
	if c.Typ != expected {
		return ErrInvalidClaim
	}
	return nil
}
