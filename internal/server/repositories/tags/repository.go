// Package tags persists the labels attached to content and subscriptions.
package tags

import (
	"context"

	"github.com/dmitrijs2005/stavros/internal/server/models"
)

type Repository interface {
	// Create inserts a tag; a duplicate name yields common.ErrConflict.
	Create(ctx context.Context, name string) (*models.Tag, error)
	List(ctx context.Context) ([]models.Tag, error)
	// Delete removes a tag; a missing tag yields common.ErrorNotFound.
	Delete(ctx context.Context, id string) error
}
