package announcements

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

var selectAnnouncement = `SELECT a.id, a.slug, a.title, a.content, a.organization_id, a.posted_at, ` +
	tagging.Subquery("announcement_tags", "announcement_id", "a.id") + `
	FROM announcements a`

func (r *PostgresRepository) Create(ctx context.Context, a *models.Announcement, tagIDs []string) (*models.Announcement, error) {
	query := `
		INSERT INTO announcements (slug, title, content, organization_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, posted_at
	`
	err := r.db.QueryRowContext(ctx, query, a.Slug, a.Title, a.Content, a.OrganizationID).
		Scan(&a.ID, &a.PostedAt)
	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err):
			return nil, common.ErrConflict
		case dbx.IsForeignKeyViolation(err):
			return nil, fmt.Errorf("organization %s: %w", a.OrganizationID, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := tagging.Attach(ctx, r.db, "announcement_tags", "announcement_id", a.ID, tagIDs); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*models.Announcement, error) {
	a, err := scanAnnouncement(r.db.QueryRowContext(ctx, selectAnnouncement+` WHERE a.slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) List(ctx context.Context, page models.Page) ([]*models.Announcement, error) {
	page = page.Normalize()
	return r.query(ctx, selectAnnouncement+` ORDER BY a.posted_at DESC LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string, page models.Page) ([]*models.Announcement, error) {
	page = page.Normalize()
	query := selectAnnouncement + `
		WHERE a.organization_id IN (
			SELECT organization_id FROM user_organization_subscriptions WHERE user_id = $1
		) OR EXISTS (
			SELECT 1 FROM announcement_tags at
			JOIN user_tag_subscriptions uts ON uts.tag_id = at.tag_id
			WHERE at.announcement_id = a.id AND uts.user_id = $1
		)
		ORDER BY a.posted_at DESC LIMIT $2 OFFSET $3`
	return r.query(ctx, query, userID, page.Limit, page.Offset)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Announcement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
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
		`SELECT slug FROM announcements WHERE slug = $1 OR slug LIKE $1 || '-%'`, base)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(s scanner) (*models.Announcement, error) {
	a := &models.Announcement{}
	var rawTags []byte
	if err := s.Scan(&a.ID, &a.Slug, &a.Title, &a.Content, &a.OrganizationID, &a.PostedAt, &rawTags); err != nil {
		return nil, err
	}
	tags, err := tagging.Decode(rawTags)
	if err != nil {
		return nil, err
	}
	a.Tags = tags
	return a, nil
}
