// Package subscriptions records which tags and organizations a user follows.
package subscriptions

import (
	"context"

	"github.com/dmitrijs2005/stavros/internal/server/models"
)

// Repository operations are idempotent; following an unknown tag or
// organization yields common.ErrorNotFound.
type Repository interface {
	FollowTag(ctx context.Context, userID, tagID string) error
	UnfollowTag(ctx context.Context, userID, tagID string) error
	FollowOrganization(ctx context.Context, userID, orgID string) error
	UnfollowOrganization(ctx context.Context, userID, orgID string) error
	Tags(ctx context.Context, userID string) ([]models.Tag, error)
	Organizations(ctx context.Context, userID string) ([]string, error)
}
