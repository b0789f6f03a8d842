package resources

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

var selectResource = `SELECT r.id, r.title, r.additional_info, r.link, r.attachment_key, r.created_at, ` +
	tagging.Subquery("resource_tags", "resource_id", "r.id") + `
	FROM resources r`

func (r *PostgresRepository) Create(ctx context.Context, res *models.Resource, tagIDs []string) (*models.Resource, error) {
	query := `
		INSERT INTO resources (title, additional_info, link)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, res.Title, res.AdditionalInfo, res.Link).
		Scan(&res.ID, &res.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := tagging.Attach(ctx, r.db, "resource_tags", "resource_id", res.ID, tagIDs); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, selectResource+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) List(ctx context.Context, page models.Page) ([]*models.Resource, error) {
	page = page.Normalize()
	return r.query(ctx, selectResource+` ORDER BY r.created_at DESC LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
}

func (r *PostgresRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.Resource, error) {
	return r.query(ctx, selectResource+`
		JOIN organization_resources orr ON orr.resource_id = r.id
		WHERE orr.organization_id = $1
		ORDER BY r.created_at DESC`, orgID)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Resource, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) SetAttachment(ctx context.Context, id, key string) error {
	return r.execOne(ctx, `UPDATE resources SET attachment_key = $2 WHERE id = $1`, id, key)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM resources WHERE id = $1`, id)
}

// execOne runs a statement expected to touch exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(s scanner) (*models.Resource, error) {
	res := &models.Resource{}
	var rawTags []byte
	if err := s.Scan(&res.ID, &res.Title, &res.AdditionalInfo, &res.Link, &res.AttachmentKey,
		&res.CreatedAt, &rawTags); err != nil {
		return nil, err
	}
	tags, err := tagging.Decode(rawTags)
	if err != nil {
		return nil, err
	}
	res.Tags = tags
	res.HasAttachment = res.AttachmentKey != ""
	return res, nil
}
