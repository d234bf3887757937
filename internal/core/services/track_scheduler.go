package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
	"github.com/srgjo27/fair_ticket/internal/platform/clock"
)

const (
	trackLifecycleLock = "scheduler:track-lifecycle"
	expiredHoldBatch   = 500
	stalePaymentBatch  = 100
	scheduleLookback   = 2 * time.Hour
)

type TrackSchedulerDeps struct {
	Schedules    ports.ScheduleRepository
	Reservations ports.ReservationRepository
	ResSeats     ports.ReservationSeatRepository
	Queue        ports.QueueStore
	State        ports.TrackStateStore
	Locker       ports.DistributedLocker
	Payments     ports.PaymentRepository
	Lottery      *LotteryService
	PaymentSvc   *PaymentService
	Compensator  *Compensator
}

// TickReport counts what one lifecycle pass changed.
type TickReport struct {
	LiveClosed         []int64
	LotteryAssigned    int
	LotteryCancelled   int
	HoldsReleased      int
	PaymentsReconciled int
}

// TrackLifecycleScheduler evaluates time-driven track transitions. Nothing
// is pushed to it: every tick re-reads schedules and flags.
type TrackLifecycleScheduler struct {
	schedules    ports.ScheduleRepository
	reservations ports.ReservationRepository
	resSeats     ports.ReservationSeatRepository
	queue        ports.QueueStore
	state        ports.TrackStateStore
	locker       ports.DistributedLocker
	payments     ports.PaymentRepository
	lottery      *LotteryService
	paymentSvc   *PaymentService
	compensator  *Compensator
	policy       domain.TrackPolicy
	interval     time.Duration
	clock        clock.Clock
	logger       *slog.Logger
}

func NewTrackLifecycleScheduler(deps TrackSchedulerDeps, policy domain.TrackPolicy, interval time.Duration, clk clock.Clock, logger *slog.Logger) *TrackLifecycleScheduler {
	return &TrackLifecycleScheduler{
		schedules:    deps.Schedules,
		reservations: deps.Reservations,
		resSeats:     deps.ResSeats,
		queue:        deps.Queue,
		state:        deps.State,
		locker:       deps.Locker,
		payments:     deps.Payments,
		lottery:      deps.Lottery,
		paymentSvc:   deps.PaymentSvc,
		compensator:  deps.Compensator,
		policy:       policy,
		interval:     interval,
		clock:        clk,
		logger:       logger,
	}
}

func (s *TrackLifecycleScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("track scheduler started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("track scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.logger.Error("track tick failed", "error", err)
			}
		}
	}
}

func (s *TrackLifecycleScheduler) lease() time.Duration {
	if s.interval <= 2*time.Second {
		return s.interval
	}
	return s.interval - time.Second
}

func (s *TrackLifecycleScheduler) Tick(ctx context.Context) (TickReport, error) {
	var report TickReport

	_, err := withLock(ctx, s.locker, s.logger, trackLifecycleLock, s.lease(), func(ctx context.Context) error {
		now := s.clock.Now()

		schedules, err := s.schedules.ListOpeningBetween(ctx, now.Add(-s.lookback()), now.Add(s.policy.LotteryPaymentCloseBefore))
		if err != nil {
			return err
		}

		for i := range schedules {
			sc := &schedules[i]

			closed, err := s.CheckLiveClose(ctx, sc)
			if err != nil {
				s.logger.Error("live close check failed", "schedule_id", sc.ID, "error", err)
			} else if closed {
				report.LiveClosed = append(report.LiveClosed, sc.ID)
			}

			n, err := s.CancelUnpaidLottery(ctx, sc)
			if err != nil {
				s.logger.Error("unpaid lottery scan failed", "schedule_id", sc.ID, "error", err)
			}
			report.LotteryCancelled += n

			n, err = s.AssignLottery(ctx, sc)
			if err != nil {
				s.logger.Error("lottery assignment failed", "schedule_id", sc.ID, "error", err)
			}
			report.LotteryAssigned += n
		}

		n, err := s.ReleaseExpiredHolds(ctx)
		if err != nil {
			s.logger.Error("expired hold scan failed", "error", err)
		}
		report.HoldsReleased = n

		n, err = s.ReconcilePayments(ctx)
		if err != nil {
			s.logger.Error("stale payment scan failed", "error", err)
		}
		report.PaymentsReconciled = n

		return nil
	})

	return report, err
}

func (s *TrackLifecycleScheduler) lookback() time.Duration {
	return max(s.policy.LiveDuration, s.policy.LotteryAssignAfter) + scheduleLookback
}

// CheckLiveClose reports whether this call closed the live track.
func (s *TrackLifecycleScheduler) CheckLiveClose(ctx context.Context, sc *domain.Schedule) (bool, error) {
	now := s.clock.Now()
	if now.Before(sc.TicketOpenTime) {
		return false, nil
	}

	closed, err := s.state.IsLiveClosed(ctx, sc.ID)
	if err != nil || closed {
		return false, err
	}

	size, err := s.queue.Size(ctx, sc.ID)
	if err != nil {
		return false, err
	}

	var emptySince time.Time
	if size == 0 {
		if emptySince, err = s.state.QueueEmptySince(ctx, sc.ID, now); err != nil {
			return false, err
		}
	} else if err := s.state.ClearQueueEmptySince(ctx, sc.ID); err != nil {
		return false, err
	}

	if !s.policy.ShouldCloseLive(sc, now, emptySince) {
		return false, nil
	}

	first, err := s.state.MarkLiveClosed(ctx, sc.ID, now)
	if err != nil || !first {
		return false, err
	}

	if err := s.state.ClearQueueEmptySince(ctx, sc.ID); err != nil {
		s.logger.Warn("queue empty mark clear failed", "schedule_id", sc.ID, "error", err)
	}
	if err := s.queue.Retire(ctx, sc.ID); err != nil {
		s.logger.Warn("queue retire failed", "schedule_id", sc.ID, "error", err)
	}

	s.logger.Info("live track closed", "schedule_id", sc.ID, "open_for", now.Sub(sc.TicketOpenTime), "queue_size", size)

	return true, nil
}

func (s *TrackLifecycleScheduler) AssignLottery(ctx context.Context, sc *domain.Schedule) (int, error) {
	if s.clock.Now().Before(s.policy.LotteryAssignAt(sc)) {
		return 0, nil
	}

	closed, err := s.state.IsLiveClosed(ctx, sc.ID)
	if err != nil || !closed {
		return 0, err
	}

	return s.lottery.AssignSeats(ctx, sc.ID)
}

func (s *TrackLifecycleScheduler) CancelUnpaidLottery(ctx context.Context, sc *domain.Schedule) (int, error) {
	if s.clock.Now().Before(s.policy.LotteryPaymentCloseAt(sc)) {
		return 0, nil
	}

	pending, err := s.reservations.ListByStatus(ctx, sc.ID, domain.TrackLottery, domain.ReservationPending)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, r := range pending {
		ok, err := s.compensator.CancelPending(ctx, r.ID, "lottery_unpaid")
		if err != nil {
			s.logger.Error("unpaid lottery cancel failed", "reservation_id", r.ID, "error", err)
			continue
		}
		if ok {
			cancelled++
		}
	}

	return cancelled, nil
}

func (s *TrackLifecycleScheduler) ReleaseExpiredHolds(ctx context.Context) (int, error) {
	expired, err := s.resSeats.ListExpiredPending(ctx, s.clock.Now().Add(-s.policy.HoldDuration), expiredHoldBatch)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, rs := range expired {
		ok, err := s.compensator.ReleaseSeat(ctx, rs, "hold_expired")
		if err != nil {
			s.logger.Error("expired hold release failed", "reservation_id", rs.ReservationID, "seat", rs.SeatNumber, "error", err)
			continue
		}
		if ok {
			released++
		}
	}

	if released > 0 {
		s.logger.Info("expired holds released", "count", released)
	}

	return released, nil
}

// ReconcilePayments settles payments left PENDING past PaymentReconcileAfter
// against the gateway. A payment the gateway reports failed cancels its
// reservation.
func (s *TrackLifecycleScheduler) ReconcilePayments(ctx context.Context) (int, error) {
	if s.paymentSvc == nil {
		return 0, nil
	}

	stale, err := s.payments.ListStalePending(ctx, s.clock.Now().Add(-s.policy.PaymentReconcileAfter), stalePaymentBatch)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, p := range stale {
		outcome, err := s.paymentSvc.Reconcile(ctx, p)
		if err != nil {
			s.logger.Warn("payment reconcile failed", "payment_id", p.ID, "error", err)
			continue
		}

		switch outcome {
		case ReconcileCompleted:
			settled++
		case ReconcileFailed:
			settled++
			if _, err := s.compensator.CancelPending(ctx, p.ReservationID, "payment_failed"); err != nil {
				s.logger.Error("failed payment cancel failed", "reservation_id", p.ReservationID, "error", err)
			}
		}
	}

	if settled > 0 {
		s.logger.Info("stale payments reconciled", "count", settled)
	}

	return settled, nil
}
