// Package announcements persists posts published by organizations and the
// per-user dashboard feed built from subscriptions.
package announcements

import (
	"context"

	"github.com/dmitrijs2005/stavros/internal/server/models"
)

type Repository interface {
	// Create inserts a and links tagIDs. A taken slug yields
	// common.ErrConflict; an unknown organization or tag yields
	// common.ErrorNotFound.
	Create(ctx context.Context, a *models.Announcement, tagIDs []string) (*models.Announcement, error)
	GetBySlug(ctx context.Context, slug string) (*models.Announcement, error)
	// List returns announcements newest first.
	List(ctx context.Context, page models.Page) ([]*models.Announcement, error)
	// ListForUser returns announcements from organizations userID follows or
	// carrying tags userID follows, newest first.
	ListForUser(ctx context.Context, userID string, page models.Page) ([]*models.Announcement, error)
	Delete(ctx context.Context, id string) error
	Slugs(ctx context.Context, base string) ([]string, error)
}
