// Package users declares the account repository contract and its PostgreSQL
// implementation.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/stavros/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID and timestamps. A duplicate
	// email (case-insensitive) yields common.ErrEmailTaken.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// MarkVerified sets verified_at if it is still empty and reports
	// whether this call was the one that changed it.
	MarkVerified(ctx context.Context, id string, at time.Time) (bool, error)
	UpdateName(ctx context.Context, id, name string) error
	List(ctx context.Context, page models.Page) ([]*models.User, error)
}
