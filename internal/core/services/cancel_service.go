package services

import (
	"context"
	"log/slog"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
	"github.com/srgjo27/fair_ticket/internal/platform/clock"
)

type CancelDeps struct {
	Schedules    ports.ScheduleRepository
	Reservations ports.ReservationRepository
	ResSeats     ports.ReservationSeatRepository
	Payments     ports.PaymentRepository
	PaymentSvc   *PaymentService
	Pool         *SeatPoolService
	State        ports.TrackStateStore
}

// ReservationCancelService refunds paid reservations inside the schedule's
// cancellation window.
type ReservationCancelService struct {
	schedules    ports.ScheduleRepository
	reservations ports.ReservationRepository
	resSeats     ports.ReservationSeatRepository
	payments     ports.PaymentRepository
	paymentSvc   *PaymentService
	pool         *SeatPoolService
	state        ports.TrackStateStore
	policy       domain.TrackPolicy
	clock        clock.Clock
	logger       *slog.Logger
}

func NewReservationCancelService(deps CancelDeps, policy domain.TrackPolicy, clk clock.Clock, logger *slog.Logger) *ReservationCancelService {
	return &ReservationCancelService{
		schedules:    deps.Schedules,
		reservations: deps.Reservations,
		resSeats:     deps.ResSeats,
		payments:     deps.Payments,
		paymentSvc:   deps.PaymentSvc,
		pool:         deps.Pool,
		state:        deps.State,
		policy:       policy,
		clock:        clk,
		logger:       logger,
	}
}

func (s *ReservationCancelService) Window(ctx context.Context, scheduleID int64) (domain.CancellationWindow, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return domain.CancellationWindow{}, err
	}

	return s.policy.CancellationWindow(schedule), nil
}

func (s *ReservationCancelService) Cancel(ctx context.Context, reservationID, userID int64) (*domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, domain.ErrReservationNotFound
	}
	if res.Status != domain.ReservationPaidPendingSeat && res.Status != domain.ReservationAssigned {
		return nil, domain.ErrCancellationNotAvailable
	}

	window, err := s.Window(ctx, res.ScheduleID)
	if err != nil {
		return nil, err
	}
	if !window.Contains(s.clock.Now()) {
		return nil, domain.ErrCancellationWindowExpired
	}

	payment, err := s.payments.FindLatestByReservation(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	if err := s.paymentSvc.Refund(ctx, payment, "cancelled by user"); err != nil {
		return nil, err
	}

	moved, err := s.reservations.TransitionStatus(ctx, res.ID, res.Status, domain.ReservationRefunded)
	if err != nil {
		return nil, err
	}
	if !moved {
		s.logger.Error("refunded payment but reservation moved concurrently", "reservation_id", res.ID, "payment_id", payment.ID)
		return nil, domain.ErrCancellationNotAvailable
	}
	res.Status = domain.ReservationRefunded

	seats, err := s.resSeats.ListByStatus(ctx, res.ID, domain.ReservationSeatAssigned)
	if err != nil {
		s.logger.Error("load assigned seats failed", "reservation_id", res.ID, "error", err)
	}
	for _, rs := range seats {
		ok, err := s.resSeats.TransitionStatus(ctx, rs.ID, domain.ReservationSeatAssigned, domain.ReservationSeatCancelled)
		if err != nil || !ok {
			s.logger.Warn("seat cancel skipped", "reservation_id", res.ID, "seat", rs.SeatNumber, "error", err)
			continue
		}
		if _, err := s.pool.Return(ctx, rs.ScheduleID, rs.Zone, rs.SeatNumber); err != nil {
			s.logger.Error("seat return failed", "reservation_id", res.ID, "seat", rs.SeatNumber, "error", err)
		}
	}

	if _, err := s.state.AdjustStock(ctx, res.ScheduleID, res.Grade, int64(res.Quantity)); err != nil {
		s.logger.Error("stock restore failed", "reservation_id", res.ID, "error", err)
	}

	s.logger.Info("reservation refunded", "reservation_id", res.ID, "user_id", userID, "seats", len(seats))

	return res, nil
}
