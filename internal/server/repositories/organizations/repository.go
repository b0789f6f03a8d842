// Package organizations persists clubs, companies and other bodies that
// publish announcements and events.
package organizations

import (
	"context"

	"github.com/dmitrijs2005/stavros/internal/server/models"
)

type Repository interface {
	// Create inserts org and links tagIDs. A taken slug yields
	// common.ErrConflict, an unknown tag common.ErrorNotFound.
	Create(ctx context.Context, org *models.Organization, tagIDs []string) (*models.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	List(ctx context.Context, page models.Page) ([]*models.Organization, error)
	Delete(ctx context.Context, id string) error
	// Slugs returns base and every taken "base-N" variant.
	Slugs(ctx context.Context, base string) ([]string, error)

	// AttachContact and AttachResource are idempotent. An unknown
	// organization or target yields common.ErrorNotFound.
	AttachContact(ctx context.Context, orgID, contactID string) error
	DetachContact(ctx context.Context, orgID, contactID string) error
	AttachResource(ctx context.Context, orgID, resourceID string) error
	DetachResource(ctx context.Context, orgID, resourceID string) error
}
