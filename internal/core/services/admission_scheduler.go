package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/ports"
	"github.com/srgjo27/fair_ticket/internal/platform/clock"
	"github.com/srgjo27/fair_ticket/internal/platform/metrics"
)

const (
	batchEntryLock  = "scheduler:batch-entry"
	batchEntryLease = 4 * time.Second
	cleanupLock     = "scheduler:cleanup"
	cleanupLease    = 9 * time.Second
)

// AdmissionScheduler moves waiting users into the active set and drops users
// whose heartbeat stopped. Both jobs run on one instance at a time.
type AdmissionScheduler struct {
	queue  ports.QueueStore
	tokens *EntryTokenService
	locker ports.DistributedLocker
	cfg    QueueConfig
	clock  clock.Clock
	logger *slog.Logger
}

func NewAdmissionScheduler(queue ports.QueueStore, tokens *EntryTokenService, locker ports.DistributedLocker, cfg QueueConfig, clk clock.Clock, logger *slog.Logger) *AdmissionScheduler {
	return &AdmissionScheduler{
		queue:  queue,
		tokens: tokens,
		locker: locker,
		cfg:    cfg,
		clock:  clk,
		logger: logger,
	}
}

func (s *AdmissionScheduler) Run(ctx context.Context) {
	admitTicker := time.NewTicker(s.cfg.AdmissionInterval)
	defer admitTicker.Stop()

	cleanupTicker := time.NewTicker(s.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	s.logger.Info("admission scheduler started",
		"admission_interval", s.cfg.AdmissionInterval,
		"cleanup_interval", s.cfg.CleanupInterval,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("admission scheduler stopped")
			return
		case <-admitTicker.C:
			if _, err := s.AdmitTick(ctx); err != nil {
				s.logger.Error("admission tick failed", "error", err)
			}
		case <-cleanupTicker.C:
			if _, err := s.CleanupTick(ctx); err != nil {
				s.logger.Error("cleanup tick failed", "error", err)
			}
		}
	}
}

// AdmitTick returns how many users were admitted across all schedules.
func (s *AdmissionScheduler) AdmitTick(ctx context.Context) (int, error) {
	admitted := 0

	_, err := withLock(ctx, s.locker, s.logger, batchEntryLock, batchEntryLease, func(ctx context.Context) error {
		schedules, err := s.queue.ActiveSchedules(ctx)
		if err != nil {
			return err
		}

		for _, scheduleID := range schedules {
			admitted += s.admitSchedule(ctx, scheduleID)
		}

		return nil
	})

	return admitted, err
}

func (s *AdmissionScheduler) admitSchedule(ctx context.Context, scheduleID int64) int {
	res, err := s.queue.Admit(ctx, scheduleID, s.cfg.BatchSize, s.cfg.MaxActiveUsers, s.clock.Now(), s.cfg.ActiveTimeout)
	if err != nil {
		s.logger.Error("admission failed", "schedule_id", scheduleID, "error", err)
		return 0
	}

	issued := 0
	for _, userID := range res.Admitted {
		if _, err := s.tokens.Issue(ctx, userID, scheduleID); err != nil {
			s.logger.Error("token issue failed", "schedule_id", scheduleID, "user_id", userID, "error", err)
			continue
		}
		issued++
	}

	if len(res.Admitted) > 0 {
		metrics.QueueAdmissions.Add(float64(issued))
		s.logger.Info("users admitted",
			"schedule_id", scheduleID,
			"admitted", len(res.Admitted),
			"active", res.ActiveCount,
			"waiting", res.QueueSize,
		)
	}

	return len(res.Admitted)
}

func (s *AdmissionScheduler) CleanupTick(ctx context.Context) (int, error) {
	removed := 0

	_, err := withLock(ctx, s.locker, s.logger, cleanupLock, cleanupLease, func(ctx context.Context) error {
		schedules, err := s.queue.ActiveSchedules(ctx)
		if err != nil {
			return err
		}

		for _, scheduleID := range schedules {
			stale, err := s.queue.RemoveStale(ctx, scheduleID)
			if err != nil {
				s.logger.Error("stale cleanup failed", "schedule_id", scheduleID, "error", err)
				continue
			}
			if len(stale) > 0 {
				removed += len(stale)
				metrics.QueueStaleRemoved.Add(float64(len(stale)))
				s.logger.Info("removed disconnected users", "schedule_id", scheduleID, "count", len(stale))
			}
		}

		return nil
	})

	return removed, err
}
