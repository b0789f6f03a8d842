// Package refreshtokens stores the server half of login sessions. Like
// verification tokens, only the SHA-256 digest of each refresh token is
// persisted.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/stavros/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// Consume removes the session identified by tokenHash and returns what
	// was stored. The delete is a single statement, so of several callers
	// racing on one token exactly one gets the row; the rest see
	// common.ErrorNotFound. Expiry is left for the caller to judge.
	Consume(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// Revoke ends the session if it exists. Unknown digests are not an error.
	Revoke(ctx context.Context, tokenHash string) error

	// DeleteExpired purges sessions whose expiry is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
