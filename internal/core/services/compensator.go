package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
	"github.com/srgjo27/fair_ticket/internal/platform/metrics"
)

// Compensator undoes abandoned reservation steps. Every entry point re-reads
// current state and moves it with a compare-and-set, so running it twice for
// the same event changes nothing the second time.
type Compensator struct {
	reservations ports.ReservationRepository
	resSeats     ports.ReservationSeatRepository
	payments     ports.PaymentRepository
	pool         *SeatPoolService
	holds        *SeatHoldService
	state        ports.TrackStateStore
	timers       ports.PaymentTimerStore
	logger       *slog.Logger
}

func NewCompensator(
	reservations ports.ReservationRepository,
	resSeats ports.ReservationSeatRepository,
	payments ports.PaymentRepository,
	pool *SeatPoolService,
	holds *SeatHoldService,
	state ports.TrackStateStore,
	timers ports.PaymentTimerStore,
	logger *slog.Logger,
) *Compensator {
	return &Compensator{
		reservations: reservations,
		resSeats:     resSeats,
		payments:     payments,
		pool:         pool,
		holds:        holds,
		state:        state,
		timers:       timers,
		logger:       logger,
	}
}

// CancelPending cancels a reservation that is still PENDING and restores
// everything it consumed. It reports false for stale or duplicate calls.
func (c *Compensator) CancelPending(ctx context.Context, reservationID int64, kind string) (bool, error) {
	res, err := c.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, domain.ErrReservationNotFound) {
			metrics.Compensations.WithLabelValues(kind, "stale").Inc()
			return false, nil
		}
		return false, err
	}

	if res.Status != domain.ReservationPending {
		metrics.Compensations.WithLabelValues(kind, "stale").Inc()
		c.logger.Debug("compensation skipped", "kind", kind, "reservation_id", res.ID, "status", res.Status)
		return false, nil
	}

	moved, err := c.reservations.TransitionStatus(ctx, res.ID, domain.ReservationPending, domain.ReservationCancelled)
	if err != nil {
		return false, fmt.Errorf("cancel reservation %d: %w", res.ID, err)
	}
	if !moved {
		metrics.Compensations.WithLabelValues(kind, "stale").Inc()
		return false, nil
	}

	if n, err := c.payments.CancelPendingByReservation(ctx, res.ID); err != nil {
		c.logger.Error("payment cancel failed", "reservation_id", res.ID, "error", err)
	} else if n > 0 {
		c.logger.Info("pending payment cancelled", "reservation_id", res.ID, "count", n)
	}

	if res.Track == domain.TrackLive {
		seats, err := c.resSeats.ListByStatus(ctx, res.ID, domain.ReservationSeatPending)
		if err != nil {
			c.logger.Error("load held seats failed", "reservation_id", res.ID, "error", err)
		}
		for _, rs := range seats {
			if _, err := c.returnSeat(ctx, rs, kind); err != nil {
				c.logger.Error("seat return failed", "reservation_id", res.ID, "seat", rs.SeatNumber, "error", err)
			}
		}
	}

	if _, err := c.state.AdjustStock(ctx, res.ScheduleID, res.Grade, int64(res.Quantity)); err != nil {
		c.logger.Error("stock restore failed", "reservation_id", res.ID, "grade", res.Grade, "error", err)
	}

	if _, err := c.timers.Cancel(ctx, res.ID); err != nil {
		c.logger.Warn("payment timer cancel failed", "reservation_id", res.ID, "error", err)
	}

	metrics.Compensations.WithLabelValues(kind, "applied").Inc()
	c.logger.Info("reservation cancelled", "kind", kind, "reservation_id", res.ID,
		"schedule_id", res.ScheduleID, "track", res.Track, "quantity", res.Quantity)

	return true, nil
}

// ReleaseSeat cancels one PENDING reservation seat, returns it to the pool
// and shrinks the owning reservation, cancelling it at zero.
func (c *Compensator) ReleaseSeat(ctx context.Context, rs domain.ReservationSeat, kind string) (bool, error) {
	released, err := c.returnSeat(ctx, rs, kind)
	if err != nil || !released {
		if err == nil {
			metrics.Compensations.WithLabelValues(kind, "stale").Inc()
		}
		return false, err
	}

	if res, err := c.reservations.GetByID(ctx, rs.ReservationID); err != nil {
		c.logger.Error("stock restore skipped", "reservation_id", rs.ReservationID, "error", err)
	} else if _, err := c.state.AdjustStock(ctx, res.ScheduleID, res.Grade, 1); err != nil {
		c.logger.Error("stock restore failed", "reservation_id", rs.ReservationID, "error", err)
	}

	left, err := c.reservations.DecrementQuantity(ctx, rs.ReservationID)
	switch {
	case errors.Is(err, domain.ErrReservationNotPending):
		c.logger.Debug("reservation no longer pending", "reservation_id", rs.ReservationID)
	case err != nil:
		c.logger.Error("reservation quantity decrement failed", "reservation_id", rs.ReservationID, "error", err)
	case left == 0:
		if _, err := c.timers.Cancel(ctx, rs.ReservationID); err != nil {
			c.logger.Warn("payment timer cancel failed", "reservation_id", rs.ReservationID, "error", err)
		}
		if _, err := c.payments.CancelPendingByReservation(ctx, rs.ReservationID); err != nil {
			c.logger.Error("payment cancel failed", "reservation_id", rs.ReservationID, "error", err)
		}
		c.logger.Info("reservation emptied and cancelled", "reservation_id", rs.ReservationID)
	}

	metrics.Compensations.WithLabelValues(kind, "applied").Inc()

	return true, nil
}

// returnSeat is gated on the PENDING -> CANCELLED move of the seat row, so
// only one caller ever puts a given seat back.
func (c *Compensator) returnSeat(ctx context.Context, rs domain.ReservationSeat, kind string) (bool, error) {
	moved, err := c.resSeats.TransitionStatus(ctx, rs.ID, domain.ReservationSeatPending, domain.ReservationSeatCancelled)
	if err != nil {
		return false, fmt.Errorf("cancel reservation seat %d: %w", rs.ID, err)
	}
	if !moved {
		return false, nil
	}

	if _, err := c.holds.Release(ctx, rs.ScheduleID, rs.Zone, rs.SeatNumber); err != nil {
		c.logger.Warn("hold release failed", "schedule_id", rs.ScheduleID, "seat", rs.SeatNumber, "error", err)
	}

	if _, err := c.pool.Return(ctx, rs.ScheduleID, rs.Zone, rs.SeatNumber); err != nil {
		return true, fmt.Errorf("return seat %s/%s: %w", rs.Zone, rs.SeatNumber, err)
	}

	metrics.HoldsReleased.WithLabelValues(kind).Inc()

	return true, nil
}
