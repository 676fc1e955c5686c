package domain

import "time"

// OAuthToken records an issued access/refresh token pair. Both tokens are
// stored as SHA-256 fingerprints. Revocation kills the pair as a unit.
type OAuthToken struct {
	ID               string
	UserID           string
	ApplicationID    string
	AccessTokenHash  string
	RefreshTokenHash string
	Scopes           []string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	RevokedAt        *time.Time
	CreatedAt        time.Time
}

// IsRevoked reports whether the pair has been revoked.
func (t *OAuthToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsRefreshExpired reports whether the refresh token is past its expiry.
func (t *OAuthToken) IsRefreshExpired(now time.Time) bool {
	return now.After(t.RefreshExpiresAt)
}

// TokenPair is the plaintext result of a successful token grant, returned
// to the client once and never persisted.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds until the access token expires
	Scope        string
}
