package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/severindevelopment/hub/internal/hub/domain"
)

type oauthTokensRepo struct {
	db dbtx
}

const oauthTokenColumns = `id, user_id, application_id, access_token_hash, refresh_token_hash, scopes, access_expires_at, refresh_expires_at, revoked_at, created_at`

func scanOAuthToken(row interface{ Scan(...any) error }) (domain.OAuthToken, error) {
	var (
		t         domain.OAuthToken
		scopes    string
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.ApplicationID,
		&t.AccessTokenHash, &t.RefreshTokenHash, &scopes,
		&t.AccessExpiresAt, &t.RefreshExpiresAt, &revokedAt, &t.CreatedAt,
	)
	if err != nil {
		return domain.OAuthToken{}, err
	}
	t.Scopes = splitScopes(scopes)
	t.RevokedAt = mapNullTimePtr(revokedAt)
	return t, nil
}

func (r *oauthTokensRepo) CreateOAuthToken(ctx context.Context, t domain.OAuthToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO oauth_tokens (id, user_id, application_id, access_token_hash, refresh_token_hash, scopes, access_expires_at, refresh_expires_at, revoked_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.ApplicationID,
		t.AccessTokenHash, t.RefreshTokenHash, joinScopes(t.Scopes),
		t.AccessExpiresAt, t.RefreshExpiresAt, mapOptionalTime(t.RevokedAt), t.CreatedAt,
	)
	return err
}

func (r *oauthTokensRepo) GetOAuthTokenByAccessHash(ctx context.Context, hash string) (domain.OAuthToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+oauthTokenColumns+` FROM oauth_tokens WHERE access_token_hash = ?`, hash)

	t, err := scanOAuthToken(row)
	if err != nil {
		return domain.OAuthToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *oauthTokensRepo) GetOAuthTokenByRefreshHash(ctx context.Context, hash string) (domain.OAuthToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+oauthTokenColumns+` FROM oauth_tokens WHERE refresh_token_hash = ?`, hash)

	t, err := scanOAuthToken(row)
	if err != nil {
		return domain.OAuthToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *oauthTokensRepo) RevokeOAuthToken(ctx context.Context, id string) error {
	// Leaves revoked_at untouched if already set, keeping the first
	// revocation time and making the call idempotent.
	_, err := r.db.ExecContext(ctx,
		`UPDATE oauth_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), id,
	)
	return err
}

func (r *oauthTokensRepo) RevokeAllUserApplicationTokens(ctx context.Context, userID, applicationID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE oauth_tokens SET revoked_at = ?
		 WHERE user_id = ? AND application_id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), userID, applicationID,
	)
	return err
}

func (r *oauthTokensRepo) DeleteExpiredOAuthTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM oauth_tokens WHERE refresh_expires_at < ?`, time.Now().UTC())
	return err
}
