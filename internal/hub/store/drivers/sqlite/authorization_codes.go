package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/severindevelopment/hub/internal/hub/domain"
)

type authorizationCodesRepo struct {
	db dbtx
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO authorization_codes (id, code_hash, user_id, application_id, redirect_uri, scopes, expires_at, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code.ID, code.CodeHash, code.UserID, code.ApplicationID,
		code.RedirectURI, joinScopes(code.Scopes),
		code.ExpiresAt, mapOptionalTime(code.UsedAt), code.CreatedAt,
	)
	return err
}

func (r *authorizationCodesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	var (
		c      domain.AuthorizationCode
		scopes string
		usedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code_hash, user_id, application_id, redirect_uri, scopes, expires_at, used_at, created_at
		 FROM authorization_codes WHERE code_hash = ?`, hash,
	).Scan(&c.ID, &c.CodeHash, &c.UserID, &c.ApplicationID, &c.RedirectURI, &scopes, &c.ExpiresAt, &usedAt, &c.CreatedAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	c.Scopes = splitScopes(scopes)
	c.UsedAt = mapNullTimePtr(usedAt)
	return c, nil
}

// ConsumeAuthorizationCode is a compare-and-set: the WHERE clause only
// matches an unused row, so of any concurrent redeemers exactly one sees a
// row affected and everyone else gets ErrNotFound.
func (r *authorizationCodesRepo) ConsumeAuthorizationCode(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE authorization_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE expires_at < ?`, time.Now().UTC())
	return err
}
