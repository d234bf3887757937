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

type PaymentInit struct {
	PaymentID     int64
	ReservationID int64
	MerchantUID   string
	Amount        int64
	Deadline      time.Time
}

type PaymentDeps struct {
	Schedules    ports.ScheduleRepository
	Reservations ports.ReservationRepository
	Payments     ports.PaymentRepository
	Gateway      ports.PaymentGateway
	Publisher    ports.EventPublisher
	Timers       ports.PaymentTimerStore
	Lottery      *LotteryService
	Live         *LiveTrackService
}

// PaymentService verifies gateway payments and hands the reservation to its
// track. The gateway is only trusted after the amount matches our record.
type PaymentService struct {
	schedules    ports.ScheduleRepository
	reservations ports.ReservationRepository
	payments     ports.PaymentRepository
	gateway      ports.PaymentGateway
	publisher    ports.EventPublisher
	timers       ports.PaymentTimerStore
	lottery      *LotteryService
	live         *LiveTrackService
	policy       domain.TrackPolicy
	clock        clock.Clock
	logger       *slog.Logger
}

func NewPaymentService(deps PaymentDeps, policy domain.TrackPolicy, clk clock.Clock, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		schedules:    deps.Schedules,
		reservations: deps.Reservations,
		payments:     deps.Payments,
		gateway:      deps.Gateway,
		publisher:    deps.Publisher,
		timers:       deps.Timers,
		lottery:      deps.Lottery,
		live:         deps.Live,
		policy:       policy,
		clock:        clk,
		logger:       logger,
	}
}

func (s *PaymentService) ownedReservation(ctx context.Context, reservationID, userID int64) (*domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, domain.ErrReservationNotFound
	}

	return res, nil
}

func (s *PaymentService) checkLotteryWindow(ctx context.Context, res *domain.Reservation) error {
	if res.Track != domain.TrackLottery {
		return nil
	}

	schedule, err := s.schedules.GetByID(ctx, res.ScheduleID)
	if err != nil {
		return err
	}

	return s.policy.CheckLotteryPayment(schedule, s.clock.Now())
}

// Initiate creates (or returns the open) PENDING payment for a reservation.
func (s *PaymentService) Initiate(ctx context.Context, reservationID, userID int64) (*PaymentInit, error) {
	res, err := s.ownedReservation(ctx, reservationID, userID)
	if err != nil {
		return nil, err
	}
	if res.Status != domain.ReservationPending {
		return nil, domain.ErrReservationNotPending
	}
	if err := s.checkLotteryWindow(ctx, res); err != nil {
		return nil, err
	}

	remaining, err := s.timers.Remaining(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	if remaining <= 0 {
		return nil, domain.ErrPaymentTimeout
	}
	now := s.clock.Now()
	deadline := now.Add(remaining)

	existing, err := s.payments.FindLatestByReservation(ctx, res.ID)
	if err != nil && !errors.Is(err, domain.ErrPaymentNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == domain.PaymentPending {
		return &PaymentInit{
			PaymentID:     existing.ID,
			ReservationID: res.ID,
			MerchantUID:   existing.MerchantUID,
			Amount:        existing.Amount,
			Deadline:      deadline,
		}, nil
	}

	p := &domain.Payment{
		ReservationID: res.ID,
		UserID:        userID,
		MerchantUID:   domain.NewMerchantUID(now),
		Amount:        res.Amount(),
		Status:        domain.PaymentPending,
		CreatedAt:     now,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("payment initiated", "payment_id", p.ID, "reservation_id", res.ID, "amount", p.Amount)

	return &PaymentInit{
		PaymentID:     p.ID,
		ReservationID: res.ID,
		MerchantUID:   p.MerchantUID,
		Amount:        p.Amount,
		Deadline:      deadline,
	}, nil
}

// Complete handles the gateway callback for merchantUID.
func (s *PaymentService) Complete(ctx context.Context, merchantUID, impUID string) (*domain.Payment, error) {
	p, err := s.payments.GetByMerchantUID(ctx, merchantUID)
	if err != nil {
		return nil, err
	}

	switch p.Status {
	case domain.PaymentPending:
	case domain.PaymentCompleted, domain.PaymentRefunded:
		return nil, domain.ErrPaymentAlreadyCompleted
	case domain.PaymentCancelled:
		s.refundAtGateway(ctx, impUID, p.Amount, "payment deadline passed")
		return nil, domain.ErrPaymentTimeout
	default:
		return nil, domain.ErrReservationNotPending
	}

	gp, err := s.gateway.Verify(ctx, impUID)
	if err != nil {
		return nil, fmt.Errorf("verify payment: %w", err)
	}
	if !gp.IsPaid() {
		s.markFailed(ctx, p)
		return nil, domain.ErrPaymentNotPaid
	}
	if gp.Amount != p.Amount || (gp.MerchantUID != "" && gp.MerchantUID != p.MerchantUID) {
		s.markFailed(ctx, p)
		s.logger.Warn("payment amount mismatch", "payment_id", p.ID, "expected", p.Amount, "paid", gp.Amount)
		return nil, domain.ErrPaymentAmountMismatch
	}

	res, err := s.reservations.GetByID(ctx, p.ReservationID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLotteryWindow(ctx, res); err != nil {
		s.refundAtGateway(ctx, impUID, p.Amount, "lottery payment window closed")
		s.markFailed(ctx, p)
		return nil, err
	}

	now := s.clock.Now()
	moved, err := s.payments.MarkCompleted(ctx, p.ID, impUID, now)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, domain.ErrPaymentAlreadyCompleted
	}
	p.Status, p.ImpUID, p.PaidAt = domain.PaymentCompleted, impUID, &now

	if _, err := s.timers.Cancel(ctx, res.ID); err != nil {
		s.logger.Warn("payment timer cancel failed", "reservation_id", res.ID, "error", err)
	}

	if err := s.dispatch(ctx, res); err != nil {
		if errors.Is(err, domain.ErrReservationNotPending) {
			// the timeout listener cancelled the reservation first
			if refundErr := s.Refund(ctx, p, "reservation expired before payment"); refundErr != nil {
				s.logger.Error("refund after late payment failed", "payment_id", p.ID, "error", refundErr)
			}
			return nil, domain.ErrPaymentTimeout
		}
		return nil, err
	}

	metrics.PaymentsCompleted.WithLabelValues(string(res.Track)).Inc()

	event := domain.PaymentCompletedEvent{
		PaymentID:     p.ID,
		ReservationID: res.ID,
		UserID:        res.UserID,
		ScheduleID:    res.ScheduleID,
		Track:         res.Track,
		Amount:        p.Amount,
		PaidAt:        now,
	}
	if err := s.publisher.Publish(ctx, domain.EventPaymentCompleted, event); err != nil {
		s.logger.Warn("payment event publish failed", "payment_id", p.ID, "error", err)
	}

	s.logger.Info("payment completed", "payment_id", p.ID, "reservation_id", res.ID, "track", res.Track)

	return p, nil
}

// ReconcileOutcome is what Reconcile did with a stale pending payment.
type ReconcileOutcome int

const (
	ReconcileWaiting ReconcileOutcome = iota
	ReconcileCompleted
	ReconcileFailed
)

// Reconcile asks the gateway about a pending payment whose callback never
// arrived and settles our record to match.
func (s *PaymentService) Reconcile(ctx context.Context, p domain.Payment) (ReconcileOutcome, error) {
	gp, err := s.gateway.FindByMerchantUID(ctx, p.MerchantUID)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		return ReconcileWaiting, nil
	}
	if err != nil {
		return ReconcileWaiting, err
	}

	switch gp.Status {
	case "paid":
		_, err := s.Complete(ctx, p.MerchantUID, gp.ImpUID)
		switch {
		case err == nil, errors.Is(err, domain.ErrPaymentAlreadyCompleted):
			return ReconcileCompleted, nil
		case errors.Is(err, domain.ErrPaymentAmountMismatch),
			errors.Is(err, domain.ErrPaymentNotPaid),
			errors.Is(err, domain.ErrPaymentTimeout),
			errors.Is(err, domain.ErrLotteryPaymentClosed):
			return ReconcileFailed, nil
		}
		return ReconcileWaiting, err
	case "failed", "cancelled":
		moved, err := s.payments.TransitionStatus(ctx, p.ID, domain.PaymentPending, domain.PaymentFailed)
		if err != nil || !moved {
			return ReconcileWaiting, err
		}
		s.logger.Warn("payment failed at gateway", "payment_id", p.ID, "reservation_id", p.ReservationID, "status", gp.Status)
		return ReconcileFailed, nil
	}

	return ReconcileWaiting, nil
}

// OnPaymentCompleted is the entry point for collaborators that verified a
// payment on their own.
func (s *PaymentService) OnPaymentCompleted(ctx context.Context, reservationID int64) error {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}

	return s.dispatch(ctx, res)
}

func (s *PaymentService) dispatch(ctx context.Context, res *domain.Reservation) error {
	switch res.Track {
	case domain.TrackLottery:
		return s.lottery.OnPaymentCompleted(ctx, res)
	case domain.TrackLive:
		return s.live.OnPaymentCompleted(ctx, res)
	}

	return fmt.Errorf("reservation %d has unknown track %q", res.ID, res.Track)
}

func (s *PaymentService) Remaining(ctx context.Context, reservationID, userID int64) (time.Duration, error) {
	res, err := s.ownedReservation(ctx, reservationID, userID)
	if err != nil {
		return 0, err
	}

	return s.timers.Remaining(ctx, res.ID)
}

// Refund cancels a completed payment at the gateway and records it.
func (s *PaymentService) Refund(ctx context.Context, p *domain.Payment, reason string) error {
	if p.Status != domain.PaymentCompleted {
		return domain.ErrCancellationNotAvailable
	}

	if err := s.gateway.Cancel(ctx, p.ImpUID, p.Amount, reason); err != nil {
		return fmt.Errorf("gateway cancel: %w", err)
	}

	moved, err := s.payments.TransitionStatus(ctx, p.ID, domain.PaymentCompleted, domain.PaymentRefunded)
	if err != nil {
		return err
	}
	if !moved {
		return domain.ErrCancellationNotAvailable
	}
	p.Status = domain.PaymentRefunded

	event := domain.PaymentRefundedEvent{
		PaymentID:     p.ID,
		ReservationID: p.ReservationID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Reason:        reason,
		RefundedAt:    s.clock.Now(),
	}
	if err := s.publisher.Publish(ctx, domain.EventPaymentRefunded, event); err != nil {
		s.logger.Warn("refund event publish failed", "payment_id", p.ID, "error", err)
	}

	return nil
}

func (s *PaymentService) refundAtGateway(ctx context.Context, impUID string, amount int64, reason string) {
	if err := s.gateway.Cancel(ctx, impUID, amount, reason); err != nil {
		s.logger.Error("gateway cancel failed", "imp_uid", impUID, "error", err)
	}
}

func (s *PaymentService) markFailed(ctx context.Context, p *domain.Payment) {
	if _, err := s.payments.TransitionStatus(ctx, p.ID, domain.PaymentPending, domain.PaymentFailed); err != nil {
		s.logger.Error("payment fail mark failed", "payment_id", p.ID, "error", err)
	}
}
