package domain

import (
	"slices"
	"time"
)

// Application is a registered downstream app that uses the hub as its
// OAuth2 authorization server. The client secret is stored as an argon2id
// hash; the plaintext is shown once at registration time.
type Application struct {
	ID               string
	Slug             string
	Name             string
	Description      string
	URL              string
	IconURL          string
	ClientID         string
	ClientSecretHash string
	RedirectURIs     []string
	Public           bool // visible and entitled to every active user
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsRedirectURIAllowed reports whether uri exactly matches one of the
// registered redirect URIs. No wildcard or prefix matching.
func (a *Application) IsRedirectURIAllowed(uri string) bool {
	return slices.Contains(a.RedirectURIs, uri)
}
