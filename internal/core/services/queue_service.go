package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
	"github.com/srgjo27/fair_ticket/internal/platform/clock"
	"github.com/srgjo27/fair_ticket/internal/platform/metrics"
)

type QueueService struct {
	queue     ports.QueueStore
	schedules ports.ScheduleRepository
	tokens    *EntryTokenService
	cfg       QueueConfig
	clock     clock.Clock
	logger    *slog.Logger
}

func NewQueueService(queue ports.QueueStore, schedules ports.ScheduleRepository, tokens *EntryTokenService, cfg QueueConfig, clk clock.Clock, logger *slog.Logger) *QueueService {
	return &QueueService{
		queue:     queue,
		schedules: schedules,
		tokens:    tokens,
		cfg:       cfg,
		clock:     clk,
		logger:    logger,
	}
}

func (s *QueueService) Enter(ctx context.Context, scheduleID, userID int64) (*domain.QueueEntry, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !schedule.TicketCloseTime.IsZero() && !now.Before(schedule.TicketCloseTime) {
		return nil, domain.ErrTicketClosed
	}

	token, err := s.tokens.Current(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}
	if token != "" {
		metrics.QueueEntries.WithLabelValues("ready").Inc()
		return &domain.QueueEntry{State: domain.QueueReady, Token: token}, nil
	}

	added, err := s.queue.Enter(ctx, scheduleID, userID, now, s.cfg.MaxQueueSize)
	if err != nil {
		if errors.Is(err, domain.ErrQueueFull) {
			metrics.QueueEntries.WithLabelValues("full").Inc()
		}
		return nil, err
	}

	if err := s.queue.Touch(ctx, scheduleID, userID, now, s.cfg.HeartbeatTTL); err != nil {
		return nil, fmt.Errorf("start heartbeat: %w", err)
	}

	rank, ok, err := s.queue.Rank(ctx, scheduleID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// admitted between insert and rank lookup
		return s.readyOrNotQueued(ctx, scheduleID, userID)
	}

	if added {
		metrics.QueueEntries.WithLabelValues("queued").Inc()
		s.logger.Debug("user queued", "schedule_id", scheduleID, "user_id", userID, "position", rank+1)
	} else {
		metrics.QueueEntries.WithLabelValues("requeued").Inc()
	}

	position := rank + 1

	return &domain.QueueEntry{
		Position:             position,
		EstimatedWaitMinutes: domain.EstimateWaitMinutes(position, s.cfg.BatchSize, s.cfg.AdmitPerMinute),
		State:                domain.QueueWaiting,
	}, nil
}

func (s *QueueService) readyOrNotQueued(ctx context.Context, scheduleID, userID int64) (*domain.QueueEntry, error) {
	token, err := s.tokens.Current(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return &domain.QueueEntry{State: domain.QueueNotInQueue}, nil
	}

	return &domain.QueueEntry{State: domain.QueueReady, Token: token}, nil
}

func (s *QueueService) Status(ctx context.Context, scheduleID, userID int64) (*domain.QueueStatus, error) {
	token, err := s.tokens.Current(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}
	if token != "" {
		return &domain.QueueStatus{State: domain.QueueReady, Token: token}, nil
	}

	rank, ok, err := s.queue.Rank(ctx, scheduleID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &domain.QueueStatus{State: domain.QueueNotInQueue}, nil
	}

	return &domain.QueueStatus{Position: rank + 1, State: domain.QueueWaiting}, nil
}

func (s *QueueService) Leave(ctx context.Context, scheduleID, userID int64) error {
	if err := s.queue.Remove(ctx, scheduleID, userID); err != nil {
		return fmt.Errorf("leave queue: %w", err)
	}

	s.logger.Debug("user left queue", "schedule_id", scheduleID, "user_id", userID)

	return nil
}

func (s *QueueService) Heartbeat(ctx context.Context, scheduleID, userID int64) error {
	_, queued, err := s.queue.Rank(ctx, scheduleID, userID)
	if err != nil {
		return err
	}

	if !queued {
		token, err := s.tokens.Current(ctx, userID, scheduleID)
		if err != nil {
			return err
		}
		if token == "" {
			// token already spent on a selection or lottery entry
			active, err := s.queue.IsActive(ctx, scheduleID, userID)
			if err != nil {
				return err
			}
			if !active {
				return domain.ErrNotInQueue
			}
		}
	}

	return s.queue.Touch(ctx, scheduleID, userID, s.clock.Now(), s.cfg.HeartbeatTTL)
}
