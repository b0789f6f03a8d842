package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stavros/internal/logging"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/repomanager"
)

// Janitor periodically purges expired refresh tokens and verification links
// that were never used.
type Janitor struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	interval    time.Duration
	now         func() time.Time
}

func NewJanitor(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		db:          db,
		repomanager: m,
		logger:      logger.With("component", "janitor"),
		interval:    interval,
		now:         time.Now,
	}
}

// RunOnce performs a single purge and reports how many rows went away.
func (j *Janitor) RunOnce(ctx context.Context) (refresh, verification int64, err error) {
	now := j.now()
	refresh, err = j.repomanager.RefreshTokens(j.db).DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("error purging refresh tokens: %w", err)
	}
	verification, err = j.repomanager.VerificationTokens(j.db).DeleteExpired(ctx, now)
	if err != nil {
		return refresh, 0, fmt.Errorf("error purging verification tokens: %w", err)
	}
	return refresh, verification, nil
}

// Run purges on every tick until ctx is cancelled. Failures are logged and
// retried on the next tick.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh, verification, err := j.RunOnce(ctx)
			if err != nil {
				j.logger.Error(ctx, "purge failed", "error", err)
				continue
			}
			if refresh+verification > 0 {
				j.logger.Info(ctx, "purged expired tokens", "refresh", refresh, "verification", verification)
			}
		}
	}
}
