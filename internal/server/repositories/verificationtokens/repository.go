// Package verificationtokens stores the digests of emailed verification
// links and enforces their single use.
package verificationtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/stavros/internal/server/models"
)

// Repository defines the verification token lifecycle.
type Repository interface {
	// Create stores a pending token digest for userID.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// DeletePending removes every unconsumed token of userID so only the
	// newest link stays usable.
	DeletePending(ctx context.Context, userID string) (int64, error)

	// Consume atomically marks the token consumed if it is unconsumed and
	// unexpired at now, returning its owner. Any other state yields
	// common.ErrorNotFound, so of two concurrent callers exactly one wins.
	Consume(ctx context.Context, tokenHash string, now time.Time) (string, error)

	// FindByHash returns the token row regardless of its state.
	FindByHash(ctx context.Context, tokenHash string) (*models.VerificationToken, error)

	// DeleteExpired purges unconsumed tokens that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
