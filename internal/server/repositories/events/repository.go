// Package events persists scheduled events and their attendees.
package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/stavros/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Event, tagIDs []string) (*models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	// ListUpcoming returns events that have not ended at now, soonest first.
	ListUpcoming(ctx context.Context, now time.Time, page models.Page) ([]*models.Event, error)
	// ListMapped returns the upcoming events that carry a location.
	ListMapped(ctx context.Context, now time.Time) ([]*models.Event, error)
	Delete(ctx context.Context, id string) error
	// Join and Leave are idempotent. Joining an unknown event yields
	// common.ErrorNotFound.
	Join(ctx context.Context, eventID, userID string) error
	Leave(ctx context.Context, eventID, userID string) error
}
