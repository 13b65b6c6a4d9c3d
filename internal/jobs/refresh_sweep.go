package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RefreshSweeper is satisfied by *repository.Store.
type RefreshSweeper interface {
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// StartRefreshSweepJob clears expired refresh tokens on every interval until
// ctx is done.
func StartRefreshSweepJob(ctx context.Context, interval time.Duration, store RefreshSweeper, log logrus.FieldLogger) {
	if store == nil {
		log.Warn("refresh sweep job disabled: store not configured")
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepRefreshTokens(ctx, store, log)
			}
		}
	}()
}

func sweepRefreshTokens(ctx context.Context, store RefreshSweeper, log logrus.FieldLogger) int64 {
	tickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cleared, err := store.ClearExpiredRefreshTokens(tickCtx, time.Now().UTC())
	if err != nil {
		log.WithError(err).Error("refresh sweep job error")
		return 0
	}
	if cleared > 0 {
		log.WithField("cleared", cleared).Info("refresh sweep job cleared expired tokens")
	}
	return cleared
}
