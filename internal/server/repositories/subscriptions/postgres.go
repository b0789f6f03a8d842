package subscriptions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/dbx"
	"github.com/dmitrijs2005/stavros/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FollowTag(ctx context.Context, userID, tagID string) error {
	return r.exec(ctx,
		`INSERT INTO user_tag_subscriptions (user_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, tagID)
}

func (r *PostgresRepository) UnfollowTag(ctx context.Context, userID, tagID string) error {
	return r.exec(ctx,
		`DELETE FROM user_tag_subscriptions WHERE user_id = $1 AND tag_id = $2`, userID, tagID)
}

func (r *PostgresRepository) FollowOrganization(ctx context.Context, userID, orgID string) error {
	return r.exec(ctx,
		`INSERT INTO user_organization_subscriptions (user_id, organization_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, orgID)
}

func (r *PostgresRepository) UnfollowOrganization(ctx context.Context, userID, orgID string) error {
	return r.exec(ctx,
		`DELETE FROM user_organization_subscriptions WHERE user_id = $1 AND organization_id = $2`, userID, orgID)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Tags(ctx context.Context, userID string) ([]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name FROM user_tag_subscriptions s
		JOIN tags t ON t.id = s.tag_id
		WHERE s.user_id = $1 ORDER BY t.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Organizations(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.slug FROM user_organization_subscriptions s
		JOIN organizations o ON o.id = s.organization_id
		WHERE s.user_id = $1 ORDER BY o.slug`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
