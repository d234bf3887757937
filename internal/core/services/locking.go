package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/ports"
	"github.com/srgjo27/fair_ticket/internal/platform/metrics"
)

// withLock runs fn only if the named lease is free. A held lease skips the
// tick; the next tick retries.
func withLock(ctx context.Context, locker ports.DistributedLocker, logger *slog.Logger, name string, lease time.Duration, fn func(context.Context) error) (bool, error) {
	token, ok, err := locker.TryLock(ctx, name, lease)
	if err != nil {
		return false, err
	}
	if !ok {
		metrics.SchedulerSkipped.WithLabelValues(name).Inc()
		return false, nil
	}

	defer func() {
		if err := locker.Unlock(context.WithoutCancel(ctx), name, token); err != nil {
			logger.Warn("failed to release scheduler lock", "lock", name, "error", err)
		}
	}()

	start := time.Now()
	err = fn(ctx)
	metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	return true, err
}
