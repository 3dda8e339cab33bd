package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/ports/adapter"
	"membership-checkout/internal/domain/ports/usecase"
	"membership-checkout/internal/infra/metrics"
)

const sweepLockKey = "sweeper:expiry"

// ExpirySweeper persists EXPIRED for overdue PENDING transactions. Reads already apply
// expiry, so the sweeper only keeps the stored status and coupon usage in step.
type ExpirySweeper struct {
	interval time.Duration
	batch    int
	proc     usecase.ExpiryProcessor
	locker   adapter.Locker // optional; keeps replicas from sweeping the same rows
	now      func() time.Time
	log      *zerolog.Logger
}

func NewExpirySweeper(interval time.Duration, batch int, proc usecase.ExpiryProcessor, locker adapter.Locker, logger *zerolog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if batch <= 0 {
		batch = 200
	}
	l := logger.With().Str("component", "ExpirySweeper").Logger()
	return &ExpirySweeper{
		interval: interval,
		batch:    batch,
		proc:     proc,
		locker:   locker,
		now:      time.Now,
		log:      &l,
	}
}

func (w *ExpirySweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many transactions moved to EXPIRED.
func (w *ExpirySweeper) Sweep(ctx context.Context) int {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
		switch {
		case errors.Is(err, domain.ErrConflict):
			w.log.Debug().Msg("another instance is sweeping")
			return 0
		case err != nil:
			w.log.Warn().Err(err).Msg("sweep lock unavailable, sweeping anyway")
		default:
			defer func() {
				if err := w.locker.Unlock(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
					w.log.Warn().Err(err).Msg("sweep unlock failed")
				}
			}()
		}
	}

	n, err := w.proc.ExpireOverdue(ctx, w.now(), w.batch)
	if n > 0 {
		metrics.IncTransactionsExpired(n)
		w.log.Info().Int("count", n).Msg("overdue transactions expired")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		w.log.Error().Err(err).Int("count", n).Msg("expiry sweep error")
	}
	return n
}
