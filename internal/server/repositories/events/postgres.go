package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

var selectEvent = `SELECT e.id, e.name, e.info, e.starts_at, e.ends_at, e.city, e.location, e.organization_id,
	(SELECT count(*) FROM event_attendees ea WHERE ea.event_id = e.id), ` +
	tagging.Subquery("event_tags", "event_id", "e.id") + `
	FROM events e`

func (r *PostgresRepository) Create(ctx context.Context, e *models.Event, tagIDs []string) (*models.Event, error) {
	query := `
		INSERT INTO events (name, info, starts_at, ends_at, city, location, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, e.Name, e.Info, e.StartsAt, e.EndsAt, e.City, e.Location,
		e.OrganizationID).Scan(&e.ID)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("organization %s: %w", e.OrganizationID, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := tagging.Attach(ctx, r.db, "event_tags", "event_id", e.ID, tagIDs); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, selectEvent+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) ListUpcoming(ctx context.Context, now time.Time, page models.Page) ([]*models.Event, error) {
	page = page.Normalize()
	return r.query(ctx, selectEvent+` WHERE e.ends_at >= $1 ORDER BY e.starts_at LIMIT $2 OFFSET $3`,
		now, page.Limit, page.Offset)
}

// MapLimit caps how many pins ListMapped returns.
const MapLimit = 500

func (r *PostgresRepository) ListMapped(ctx context.Context, now time.Time) ([]*models.Event, error) {
	return r.query(ctx, selectEvent+` WHERE e.ends_at >= $1 AND e.location <> '' ORDER BY e.starts_at LIMIT $2`,
		now, MapLimit)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
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

func (r *PostgresRepository) Join(ctx context.Context, eventID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_attendees (event_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		eventID, userID)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Leave(ctx context.Context, eventID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*models.Event, error) {
	e := &models.Event{}
	var rawTags []byte
	if err := s.Scan(&e.ID, &e.Name, &e.Info, &e.StartsAt, &e.EndsAt, &e.City, &e.Location, &e.OrganizationID,
		&e.AttendeeCount, &rawTags); err != nil {
		return nil, err
	}
	tags, err := tagging.Decode(rawTags)
	if err != nil {
		return nil, err
	}
	e.Tags = tags
	return e, nil
}
