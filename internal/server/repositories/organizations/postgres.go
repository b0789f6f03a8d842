package organizations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/dbx"
	"github.com/dmitrijs2005/stavros/internal/server/models"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/tagging"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var selectOrganization = `SELECT o.id, o.name, o.slug, o.category, o.event_type, o.created_at, ` +
	tagging.Subquery("organization_tags", "organization_id", "o.id") + `
	FROM organizations o`

func (r *PostgresRepository) Create(ctx context.Context, org *models.Organization, tagIDs []string) (*models.Organization, error) {
	query := `
		INSERT INTO organizations (name, slug, category, event_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, org.Name, org.Slug, org.Category, org.EventType).
		Scan(&org.ID, &org.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := tagging.Attach(ctx, r.db, "organization_tags", "organization_id", org.ID, tagIDs); err != nil {
		return nil, err
	}
	return org, nil
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	org, err := scanOrganization(r.db.QueryRowContext(ctx, selectOrganization+` WHERE o.slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return org, nil
}

func (r *PostgresRepository) List(ctx context.Context, page models.Page) ([]*models.Organization, error) {
	page = page.Normalize()
	rows, err := r.db.QueryContext(ctx, selectOrganization+` ORDER BY o.name LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := dbx.Affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Slugs(ctx context.Context, base string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT slug FROM organizations WHERE slug = $1 OR slug LIKE $1 || '-%'`, base)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		slugs = append(slugs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return slugs, nil
}

func (r *PostgresRepository) AttachContact(ctx context.Context, orgID, contactID string) error {
	return r.link(ctx, "organization_contacts", "contact_id", orgID, contactID)
}

func (r *PostgresRepository) DetachContact(ctx context.Context, orgID, contactID string) error {
	return r.unlink(ctx, "organization_contacts", "contact_id", orgID, contactID)
}

func (r *PostgresRepository) AttachResource(ctx context.Context, orgID, resourceID string) error {
	return r.link(ctx, "organization_resources", "resource_id", orgID, resourceID)
}

func (r *PostgresRepository) DetachResource(ctx context.Context, orgID, resourceID string) error {
	return r.unlink(ctx, "organization_resources", "resource_id", orgID, resourceID)
}

func (r *PostgresRepository) link(ctx context.Context, table, col, orgID, id string) error {
	query := fmt.Sprintf(`INSERT INTO %s (organization_id, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table, col)
	if _, err := r.db.ExecContext(ctx, query, orgID, id); err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) unlink(ctx context.Context, table, col, orgID, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE organization_id = $1 AND %s = $2`, table, col)
	if _, err := r.db.ExecContext(ctx, query, orgID, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrganization(s scanner) (*models.Organization, error) {
	org := &models.Organization{}
	var rawTags []byte
	if err := s.Scan(&org.ID, &org.Name, &org.Slug, &org.Category, &org.EventType, &org.CreatedAt, &rawTags); err != nil {
		return nil, err
	}
	tags, err := tagging.Decode(rawTags)
	if err != nil {
		return nil, err
	}
	org.Tags = tags
	return org, nil
}
