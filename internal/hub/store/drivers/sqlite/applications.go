package sqlite

import (
	"context"
	"time"

	"github.com/severindevelopment/hub/internal/hub/domain"
)

type applicationsRepo struct {
	db dbtx
}

const applicationColumns = `id, slug, name, description, url, icon_url, client_id, client_secret_hash, redirect_uris, public, active, created_at, updated_at`

func scanApplication(row interface{ Scan(...any) error }) (domain.Application, error) {
	var (
		a            domain.Application
		redirectURIs string
	)
	err := row.Scan(
		&a.ID, &a.Slug, &a.Name, &a.Description, &a.URL, &a.IconURL,
		&a.ClientID, &a.ClientSecretHash, &redirectURIs,
		&a.Public, &a.Active, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Application{}, err
	}
	a.RedirectURIs = splitLines(redirectURIs)
	return a, nil
}

func (r *applicationsRepo) GetApplicationByID(ctx context.Context, id string) (domain.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)

	a, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, mapNotFound(err)
	}
	return a, nil
}

func (r *applicationsRepo) GetApplicationByClientID(ctx context.Context, clientID string) (domain.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE client_id = ?`, clientID)

	a, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, mapNotFound(err)
	}
	return a, nil
}

func (r *applicationsRepo) GetApplicationBySlug(ctx context.Context, slug string) (domain.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE slug = ?`, slug)

	a, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, mapNotFound(err)
	}
	return a, nil
}

func (r *applicationsRepo) ListApplications(ctx context.Context) ([]domain.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *applicationsRepo) CreateApplication(ctx context.Context, a domain.Application) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (id, slug, name, description, url, icon_url, client_id, client_secret_hash, redirect_uris, public, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Slug, a.Name, a.Description, a.URL, a.IconURL,
		a.ClientID, a.ClientSecretHash, joinLines(a.RedirectURIs),
		a.Public, a.Active, a.CreatedAt, a.UpdatedAt,
	)
	return mapConflict(err)
}

func (r *applicationsRepo) UpdateApplication(ctx context.Context, a domain.Application) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE applications
		 SET slug = ?, name = ?, description = ?, url = ?, icon_url = ?,
		     client_secret_hash = ?, redirect_uris = ?, public = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		a.Slug, a.Name, a.Description, a.URL, a.IconURL,
		a.ClientSecretHash, joinLines(a.RedirectURIs), a.Public, a.Active,
		time.Now().UTC(), a.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *applicationsRepo) DeleteApplication(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
