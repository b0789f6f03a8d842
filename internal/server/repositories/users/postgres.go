package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const userColumns = `id, email, name, role, password_hash, is_superuser, verified_at, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (email, name, role, password_hash, is_superuser, verified_at)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, string(user.Role), user.PasswordHash, user.IsSuperuser, user.VerifiedAt,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE lower(email) = lower($1)
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string, at time.Time) (bool, error) {
	query :=
		`UPDATE users SET verified_at = $2, updated_at = $2
		 WHERE id = $1 AND verified_at IS NULL
		 `
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := dbx.Affected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) UpdateName(ctx context.Context, id, name string) error {
	query :=
		`UPDATE users SET name = $2, updated_at = now()
		 WHERE id = $1
		 `
	res, err := r.db.ExecContext(ctx, query, id, name)
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

func (r *PostgresRepository) List(ctx context.Context, page models.Page) ([]*models.User, error) {
	page = page.Normalize()
	query := `SELECT ` + userColumns + ` FROM users
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2
		 `
	rows, err := r.db.QueryContext(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	user := &models.User{}
	var role string
	var verifiedAt sql.NullTime
	if err := s.Scan(&user.ID, &user.Email, &user.Name, &role, &user.PasswordHash,
		&user.IsSuperuser, &verifiedAt, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		user.VerifiedAt = &t
	}
	return user, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
