// Package resources persists learning resources and the storage keys of
// their optional attachments.
package resources

import (
	"context"

	"github.com/dmitrijs2005/stavros/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, res *models.Resource, tagIDs []string) (*models.Resource, error)
	GetByID(ctx context.Context, id string) (*models.Resource, error)
	List(ctx context.Context, page models.Page) ([]*models.Resource, error)
	// ListByOrganization returns the resources attached to orgID, newest
	// first.
	ListByOrganization(ctx context.Context, orgID string) ([]*models.Resource, error)
	// SetAttachment records the object key of the resource's file.
	SetAttachment(ctx context.Context, id, key string) error
	Delete(ctx context.Context, id string) error
}
