// Package contacts persists the people the school reaches out to at
// partner organizations.
package contacts

import (
	"context"

	"github.com/dmitrijs2005/stavros/internal/server/models"
)

type Repository interface {
	// Create inserts c and links tagIDs. An unknown user or tag yields
	// common.ErrorNotFound.
	Create(ctx context.Context, c *models.Contact, tagIDs []string) (*models.Contact, error)
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	List(ctx context.Context, page models.Page) ([]*models.Contact, error)
	// ListByOrganization returns the contacts attached to orgID, by name.
	ListByOrganization(ctx context.Context, orgID string) ([]*models.Contact, error)
	Delete(ctx context.Context, id string) error
}
