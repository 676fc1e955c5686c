package sqlite

import (
	"context"
	"strings"

	"github.com/severindevelopment/hub/internal/hub/domain"
)

type accessGrantsRepo struct {
	db dbtx
}

func (r *accessGrantsRepo) CreateAccessGrant(ctx context.Context, g domain.AccessGrant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_grants (id, application_id, subject_type, subject_id, granted_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.ApplicationID, g.SubjectType, g.SubjectID, g.GrantedBy, g.CreatedAt,
	)
	return mapConflict(err)
}

func (r *accessGrantsRepo) GetAccessGrantByID(ctx context.Context, id string) (domain.AccessGrant, error) {
	var g domain.AccessGrant
	err := r.db.QueryRowContext(ctx,
		`SELECT id, application_id, subject_type, subject_id, granted_by, created_at
		 FROM access_grants WHERE id = ?`,
		id,
	).Scan(&g.ID, &g.ApplicationID, &g.SubjectType, &g.SubjectID, &g.GrantedBy, &g.CreatedAt)
	if err != nil {
		return domain.AccessGrant{}, mapNotFound(err)
	}
	return g, nil
}

func (r *accessGrantsRepo) DeleteAccessGrant(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM access_grants WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accessGrantsRepo) ListGrantsForApplication(ctx context.Context, applicationID string) ([]domain.AccessGrant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, application_id, subject_type, subject_id, granted_by, created_at
		 FROM access_grants WHERE application_id = ? ORDER BY created_at`,
		applicationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AccessGrant
	for rows.Next() {
		var g domain.AccessGrant
		if err := rows.Scan(&g.ID, &g.ApplicationID, &g.SubjectType, &g.SubjectID, &g.GrantedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *accessGrantsRepo) HasGrant(ctx context.Context, applicationID, subjectType string, subjectIDs []string) (bool, error) {
	if len(subjectIDs) == 0 {
		return false, nil
	}

	query := `SELECT COUNT(1) FROM access_grants
		 WHERE application_id = ? AND subject_type = ? AND subject_id IN (` +
		placeholders(len(subjectIDs)) + `)`

	args := make([]any, 0, 2+len(subjectIDs))
	args = append(args, applicationID, subjectType)
	for _, id := range subjectIDs {
		args = append(args, id)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *accessGrantsRepo) ListEntitledApplicationIDs(ctx context.Context, userID string, groupIDs []string) ([]string, error) {
	query := `SELECT DISTINCT application_id FROM access_grants
		 WHERE (subject_type = 'user' AND subject_id = ?)`
	args := []any{userID}

	if len(groupIDs) > 0 {
		query += ` OR (subject_type = 'group' AND subject_id IN (` + placeholders(len(groupIDs)) + `))`
		for _, id := range groupIDs {
			args = append(args, id)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
