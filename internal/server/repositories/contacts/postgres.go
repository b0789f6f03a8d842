package contacts

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

var selectContact = `SELECT c.id, c.name, c.position, c.phone_number, c.industry, c.event_type, c.notes,
	c.user_id, c.created_at, ` +
	tagging.Subquery("contact_tags", "contact_id", "c.id") + `
	FROM contacts c`

func (r *PostgresRepository) Create(ctx context.Context, c *models.Contact, tagIDs []string) (*models.Contact, error) {
	query := `
		INSERT INTO contacts (name, position, phone_number, industry, event_type, notes, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	userID := sql.NullString{String: c.UserID, Valid: c.UserID != ""}
	err := r.db.QueryRowContext(ctx, query, c.Name, c.Position, c.PhoneNumber, c.Industry, c.EventType,
		c.Notes, userID).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %s: %w", c.UserID, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := tagging.Attach(ctx, r.db, "contact_tags", "contact_id", c.ID, tagIDs); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx, selectContact+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, page models.Page) ([]*models.Contact, error) {
	page = page.Normalize()
	return r.query(ctx, selectContact+` ORDER BY c.name LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
}

func (r *PostgresRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.Contact, error) {
	return r.query(ctx, selectContact+`
		JOIN organization_contacts oc ON oc.contact_id = c.id
		WHERE oc.organization_id = $1
		ORDER BY c.name`, orgID)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
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

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(s scanner) (*models.Contact, error) {
	c := &models.Contact{}
	var userID sql.NullString
	var rawTags []byte
	if err := s.Scan(&c.ID, &c.Name, &c.Position, &c.PhoneNumber, &c.Industry, &c.EventType, &c.Notes,
		&userID, &c.CreatedAt, &rawTags); err != nil {
		return nil, err
	}
	tags, err := tagging.Decode(rawTags)
	if err != nil {
		return nil, err
	}
	c.UserID = userID.String
	c.Tags = tags
	return c, nil
}
