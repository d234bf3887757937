package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
	"github.com/srgjo27/fair_ticket/internal/platform/clock"
	"github.com/srgjo27/fair_ticket/internal/platform/metrics"
)

type SelectSeatRequest struct {
	UserID     int64
	ScheduleID int64
	Zone       string
	SeatNumber string
	Token      string
}

type SelectSeatResult struct {
	ReservationID   int64
	Zone            string
	SeatNumber      string
	Grade           domain.Grade
	Quantity        int
	HoldExpiresAt   time.Time
	PaymentDeadline time.Time
}

type LiveTrackService struct {
	schedules    ports.ScheduleRepository
	seats        ports.SeatRepository
	reservations ports.ReservationRepository
	resSeats     ports.ReservationSeatRepository
	pool         *SeatPoolService
	holds        *SeatHoldService
	tokens       *EntryTokenService
	compensator  *Compensator
	state        ports.TrackStateStore
	timers       ports.PaymentTimerStore
	policy       domain.TrackPolicy
	clock        clock.Clock
	logger       *slog.Logger
}

type LiveTrackDeps struct {
	Schedules    ports.ScheduleRepository
	Seats        ports.SeatRepository
	Reservations ports.ReservationRepository
	ResSeats     ports.ReservationSeatRepository
	Pool         *SeatPoolService
	Holds        *SeatHoldService
	Tokens       *EntryTokenService
	Compensator  *Compensator
	State        ports.TrackStateStore
	Timers       ports.PaymentTimerStore
}

func NewLiveTrackService(deps LiveTrackDeps, policy domain.TrackPolicy, clk clock.Clock, logger *slog.Logger) *LiveTrackService {
	return &LiveTrackService{
		schedules:    deps.Schedules,
		seats:        deps.Seats,
		reservations: deps.Reservations,
		resSeats:     deps.ResSeats,
		pool:         deps.Pool,
		holds:        deps.Holds,
		tokens:       deps.Tokens,
		compensator:  deps.Compensator,
		state:        deps.State,
		timers:       deps.Timers,
		policy:       policy,
		clock:        clk,
		logger:       logger,
	}
}

// checkOpen returns the schedule when the live track accepts selections.
func (s *LiveTrackService) checkOpen(ctx context.Context, scheduleID int64) (*domain.Schedule, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	if err := s.policy.CheckLiveWindow(schedule, s.clock.Now()); err != nil {
		return nil, err
	}

	closed, err := s.state.IsLiveClosed(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, domain.ErrLiveTrackClosed
	}

	remaining, err := s.pool.RemainingTotal(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if remaining <= 0 {
		return nil, domain.ErrSoldOut
	}

	return schedule, nil
}

func (s *LiveTrackService) IsOpen(ctx context.Context, scheduleID int64) (bool, error) {
	_, err := s.checkOpen(ctx, scheduleID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrTicketNotOpened),
		errors.Is(err, domain.ErrTicketClosed),
		errors.Is(err, domain.ErrLiveTrackClosed),
		errors.Is(err, domain.ErrSoldOut):
		return false, nil
	default:
		return false, err
	}
}

func (s *LiveTrackService) AvailableSeats(ctx context.Context, scheduleID int64, zone string) ([]string, error) {
	return s.pool.Available(ctx, scheduleID, zone)
}

// SelectSeat takes a seat for the user. The first seat needs an entry token
// and opens a PENDING reservation; further seats join that reservation up to
// the per-user cap.
func (s *LiveTrackService) SelectSeat(ctx context.Context, req SelectSeatRequest) (*SelectSeatResult, error) {
	if _, err := s.checkOpen(ctx, req.ScheduleID); err != nil {
		return nil, err
	}

	paid, err := s.state.IsLotteryPaid(ctx, req.ScheduleID, req.UserID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, domain.ErrAlreadyParticipated
	}

	seat, err := s.seats.GetBySeatNumber(ctx, req.ScheduleID, req.Zone, req.SeatNumber)
	if err != nil {
		return nil, err
	}

	existing, err := s.reservations.FindActive(ctx, req.UserID, req.ScheduleID)
	if err != nil && !errors.Is(err, domain.ErrReservationNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.Track != domain.TrackLive || existing.Status != domain.ReservationPending {
			return nil, domain.ErrAlreadyParticipated
		}
		if existing.Grade != seat.Grade {
			return nil, domain.ErrInvalidGrade
		}
		if existing.Quantity >= s.policy.LiveMaxPerUser {
			return nil, domain.ErrLiveMaxQuantityExceeded
		}
	} else {
		valid, err := s.tokens.Validate(ctx, req.UserID, req.ScheduleID, req.Token)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, domain.ErrInvalidOrExpiredToken
		}
	}

	// stock not promised to lottery entrants gates every live seat
	reserved, err := s.state.ReserveStock(ctx, req.ScheduleID, seat.Grade, 1)
	if err != nil {
		return nil, err
	}
	if !reserved {
		metrics.SeatSelections.WithLabelValues("sold_out").Inc()
		return nil, domain.ErrSoldOut
	}

	taken, err := s.pool.Select(ctx, req.ScheduleID, req.Zone, req.SeatNumber)
	if err != nil || !taken {
		s.restoreStock(ctx, req.ScheduleID, seat.Grade)
		if err != nil {
			return nil, err
		}
		metrics.SeatSelections.WithLabelValues("taken").Inc()
		return nil, domain.ErrSeatAlreadyTaken
	}

	held, err := s.holds.Hold(ctx, req.ScheduleID, req.Zone, req.SeatNumber, req.UserID)
	if err != nil || !held {
		s.undoSelect(ctx, req, seat.Grade, false)
		if err != nil {
			return nil, err
		}
		metrics.SeatSelections.WithLabelValues("taken").Inc()
		return nil, domain.ErrSeatAlreadyTaken
	}

	now := s.clock.Now()
	res, err := s.attach(ctx, req, seat, existing, now)
	if err != nil {
		s.undoSelect(ctx, req, seat.Grade, true)
		metrics.SeatSelections.WithLabelValues("rejected").Inc()
		return nil, err
	}

	rs := &domain.ReservationSeat{
		ReservationID: res.ID,
		ScheduleID:    req.ScheduleID,
		SeatID:        seat.ID,
		Zone:          req.Zone,
		SeatNumber:    req.SeatNumber,
		Status:        domain.ReservationSeatPending,
		CreatedAt:     now,
	}
	if err := s.resSeats.Create(ctx, rs); err != nil {
		s.undoSelect(ctx, req, seat.Grade, true)
		s.detach(ctx, res, existing == nil)
		return nil, err
	}

	metrics.SeatSelections.WithLabelValues("held").Inc()
	s.logger.Info("live seat held",
		"schedule_id", req.ScheduleID, "user_id", req.UserID, "reservation_id", res.ID,
		"zone", req.Zone, "seat", req.SeatNumber)

	return &SelectSeatResult{
		ReservationID:   res.ID,
		Zone:            req.Zone,
		SeatNumber:      req.SeatNumber,
		Grade:           seat.Grade,
		Quantity:        res.Quantity,
		HoldExpiresAt:   now.Add(s.policy.HoldDuration),
		PaymentDeadline: res.CreatedAt.Add(s.policy.PaymentDeadline),
	}, nil
}

// attach binds the held seat to a reservation: either a new one (consuming
// the entry token) or the user's open live reservation.
func (s *LiveTrackService) attach(ctx context.Context, req SelectSeatRequest, seat *domain.Seat, existing *domain.Reservation, now time.Time) (*domain.Reservation, error) {
	if existing != nil {
		ok, err := s.reservations.IncrementQuantity(ctx, existing.ID, s.policy.LiveMaxPerUser)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrLiveMaxQuantityExceeded
		}
		existing.Quantity++
		return existing, nil
	}

	if err := s.tokens.ValidateAndConsume(ctx, req.UserID, req.ScheduleID, req.Token); err != nil {
		return nil, err
	}

	res := &domain.Reservation{
		UserID:     req.UserID,
		ScheduleID: req.ScheduleID,
		Grade:      seat.Grade,
		Quantity:   1,
		Track:      domain.TrackLive,
		Status:     domain.ReservationPending,
		CreatedAt:  now,
	}
	if err := s.reservations.Create(ctx, res); err != nil {
		return nil, err
	}

	if err := s.timers.Start(ctx, res.ID, s.policy.PaymentDeadline); err != nil {
		s.logger.Error("payment timer start failed", "reservation_id", res.ID, "error", err)
	}

	return res, nil
}

func (s *LiveTrackService) detach(ctx context.Context, res *domain.Reservation, created bool) {
	var err error
	if created {
		_, err = s.reservations.TransitionStatus(ctx, res.ID, domain.ReservationPending, domain.ReservationCancelled)
	} else {
		_, err = s.reservations.DecrementQuantity(ctx, res.ID)
	}
	if err != nil {
		s.logger.Error("reservation rollback failed", "reservation_id", res.ID, "error", err)
	}
}

func (s *LiveTrackService) undoSelect(ctx context.Context, req SelectSeatRequest, grade domain.Grade, held bool) {
	if held {
		if _, err := s.holds.Release(ctx, req.ScheduleID, req.Zone, req.SeatNumber); err != nil {
			s.logger.Error("hold rollback failed", "schedule_id", req.ScheduleID, "seat", req.SeatNumber, "error", err)
		}
	}

	if _, err := s.pool.Return(ctx, req.ScheduleID, req.Zone, req.SeatNumber); err != nil {
		s.logger.Error("seat rollback failed", "schedule_id", req.ScheduleID, "seat", req.SeatNumber, "error", err)
	}

	s.restoreStock(ctx, req.ScheduleID, grade)
}

func (s *LiveTrackService) restoreStock(ctx context.Context, scheduleID int64, grade domain.Grade) {
	if _, err := s.state.AdjustStock(ctx, scheduleID, grade, 1); err != nil {
		s.logger.Error("stock rollback failed", "schedule_id", scheduleID, "grade", grade, "error", err)
	}
}

func (s *LiveTrackService) ReleaseSeat(ctx context.Context, userID, scheduleID int64, zone, seatNumber string) error {
	owner, ok, err := s.holds.Owner(ctx, scheduleID, zone, seatNumber)
	if err != nil {
		return err
	}
	if !ok || owner != userID {
		return domain.ErrSeatHoldNotOwned
	}

	rs, err := s.resSeats.FindPendingBySeat(ctx, scheduleID, zone, seatNumber)
	if err != nil {
		if errors.Is(err, domain.ErrReservationNotFound) {
			// hold without a reservation row: left over from a failed selection
			released, err := s.holds.ReleaseOwned(ctx, scheduleID, zone, seatNumber, userID)
			if err != nil {
				return err
			}
			if !released {
				return domain.ErrSeatHoldNotOwned
			}
			_, err = s.pool.Return(ctx, scheduleID, zone, seatNumber)
			return err
		}
		return err
	}

	res, err := s.reservations.GetByID(ctx, rs.ReservationID)
	if err != nil {
		return err
	}
	if res.UserID != userID {
		return domain.ErrSeatHoldNotOwned
	}

	if _, err := s.compensator.ReleaseSeat(ctx, *rs, "released"); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}

	return nil
}

func (s *LiveTrackService) HoldRemaining(ctx context.Context, scheduleID int64, zone, seatNumber string) (int64, error) {
	return s.holds.RemainingHoldSeconds(ctx, scheduleID, zone, seatNumber)
}

// OnPaymentCompleted promotes a paid live reservation and its held seats.
func (s *LiveTrackService) OnPaymentCompleted(ctx context.Context, res *domain.Reservation) error {
	moved, err := s.reservations.TransitionStatus(ctx, res.ID, domain.ReservationPending, domain.ReservationAssigned)
	if err != nil {
		return err
	}
	if !moved {
		return domain.ErrReservationNotPending
	}

	seats, err := s.resSeats.ListByStatus(ctx, res.ID, domain.ReservationSeatPending)
	if err != nil {
		return err
	}

	for _, rs := range seats {
		ok, err := s.resSeats.TransitionStatus(ctx, rs.ID, domain.ReservationSeatPending, domain.ReservationSeatAssigned)
		if err != nil {
			s.logger.Error("seat assign failed", "reservation_id", res.ID, "seat", rs.SeatNumber, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if err := s.holds.Complete(ctx, res.ScheduleID, rs.Zone, rs.SeatNumber); err != nil {
			s.logger.Error("hold completion failed", "reservation_id", res.ID, "seat", rs.SeatNumber, "error", err)
		}
	}

	s.logger.Info("live reservation paid", "reservation_id", res.ID, "seats", len(seats))

	return nil
}
