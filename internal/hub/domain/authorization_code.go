package domain

import "time"

// AuthorizationCode is a single-use grant minted at the authorize endpoint
// and redeemed at the token endpoint. Only the SHA-256 fingerprint of the
// code is stored; the plaintext exists solely in the redirect to the client.
type AuthorizationCode struct {
	ID            string
	CodeHash      string
	UserID        string
	ApplicationID string
	RedirectURI   string // must match exactly at redemption
	Scopes        []string
	ExpiresAt     time.Time
	UsedAt        *time.Time
	CreatedAt     time.Time
}

// IsExpired reports whether the code is past its expiry at the given time.
func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsUsed reports whether the code has already been redeemed.
func (c *AuthorizationCode) IsUsed() bool {
	return c.UsedAt != nil
}
