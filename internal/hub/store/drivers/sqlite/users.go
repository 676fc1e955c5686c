package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/severindevelopment/hub/internal/hub/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, sso_id, email, name, first_name, last_name, middle_name, department, job_title, ad_groups, active, admin, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u         domain.User
		adGroups  string
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.SSOID, &u.Email, &u.Name,
		&u.FirstName, &u.LastName, &u.MiddleName, &u.Department,
		&u.JobTitle, &adGroups,
		&u.Active, &u.Admin, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.ADGroups = splitLines(adGroups)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserBySSOID(ctx context.Context, ssoID string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE sso_id = ?`, ssoID)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.SSOID, u.Email, u.Name,
		u.FirstName, u.LastName, u.MiddleName, u.Department,
		u.JobTitle, joinLines(u.ADGroups),
		u.Active, u.Admin, mapOptionalTime(u.LastLoginAt), u.CreatedAt, u.UpdatedAt,
	)
	return mapConflict(err)
}

func (r *usersRepo) UpdateUserProfile(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, name = ?, first_name = ?, last_name = ?, middle_name = ?,
		     department = ?, job_title = ?, ad_groups = ?, updated_at = ?
		 WHERE id = ?`,
		u.Email, u.Name, u.FirstName, u.LastName, u.MiddleName,
		u.Department, u.JobTitle, joinLines(u.ADGroups), time.Now().UTC(), u.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		now, now, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
