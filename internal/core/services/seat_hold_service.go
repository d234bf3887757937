package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
)

type SeatHoldService struct {
	holds  ports.HoldStore
	seats  ports.SeatRepository
	ttl    time.Duration
	logger *slog.Logger
}

func NewSeatHoldService(holds ports.HoldStore, seats ports.SeatRepository, ttl time.Duration, logger *slog.Logger) *SeatHoldService {
	return &SeatHoldService{holds: holds, seats: seats, ttl: ttl, logger: logger}
}

// Hold fails when another hold exists. The caller must then return the seat
// it took from the pool.
func (s *SeatHoldService) Hold(ctx context.Context, scheduleID int64, zone, seatNumber string, userID int64) (bool, error) {
	return s.holds.Acquire(ctx, scheduleID, zone, seatNumber, userID, s.ttl)
}

func (s *SeatHoldService) Release(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error) {
	released, err := s.holds.Release(ctx, scheduleID, zone, seatNumber)
	if err != nil || !released {
		return false, err
	}

	if err := s.seats.UpdateStatus(ctx, scheduleID, zone, seatNumber, domain.SeatAvailable); err != nil {
		s.logger.Warn("seat status mirror failed", "schedule_id", scheduleID, "zone", zone, "seat", seatNumber, "error", err)
	}

	return true, nil
}

// ReleaseOwned drops the hold only while userID still owns it.
func (s *SeatHoldService) ReleaseOwned(ctx context.Context, scheduleID int64, zone, seatNumber string, userID int64) (bool, error) {
	released, err := s.holds.ReleaseOwned(ctx, scheduleID, zone, seatNumber, userID)
	if err != nil || !released {
		return false, err
	}

	if err := s.seats.UpdateStatus(ctx, scheduleID, zone, seatNumber, domain.SeatAvailable); err != nil {
		s.logger.Warn("seat status mirror failed", "schedule_id", scheduleID, "zone", zone, "seat", seatNumber, "error", err)
	}

	return true, nil
}

// Complete drops the hold of a paid seat and records it as sold.
func (s *SeatHoldService) Complete(ctx context.Context, scheduleID int64, zone, seatNumber string) error {
	if _, err := s.holds.Release(ctx, scheduleID, zone, seatNumber); err != nil {
		return err
	}

	if err := s.seats.UpdateStatus(ctx, scheduleID, zone, seatNumber, domain.SeatSold); err != nil {
		s.logger.Warn("seat status mirror failed", "schedule_id", scheduleID, "zone", zone, "seat", seatNumber, "error", err)
	}

	return nil
}

func (s *SeatHoldService) Owner(ctx context.Context, scheduleID int64, zone, seatNumber string) (int64, bool, error) {
	return s.holds.Owner(ctx, scheduleID, zone, seatNumber)
}

func (s *SeatHoldService) RemainingHoldSeconds(ctx context.Context, scheduleID int64, zone, seatNumber string) (int64, error) {
	ttl, err := s.holds.TTL(ctx, scheduleID, zone, seatNumber)
	if err != nil {
		return 0, err
	}

	return int64(ttl / time.Second), nil
}
