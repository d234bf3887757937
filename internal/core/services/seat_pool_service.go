package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
)

type PoolSeat struct {
	Zone       string
	SeatNumber string
}

// SeatPoolService keeps the per-zone pools in the fast store and mirrors every
// successful mutation onto the durable seat row. The mirror write is
// best-effort: the pool decides ownership.
type SeatPoolService struct {
	pool         ports.SeatPoolStore
	seats        ports.SeatRepository
	reservations ports.ReservationRepository
	state        ports.TrackStateStore
	logger       *slog.Logger
}

func NewSeatPoolService(pool ports.SeatPoolStore, seats ports.SeatRepository, reservations ports.ReservationRepository, state ports.TrackStateStore, logger *slog.Logger) *SeatPoolService {
	return &SeatPoolService{
		pool:         pool,
		seats:        seats,
		reservations: reservations,
		state:        state,
		logger:       logger,
	}
}

// Initialize seeds every zone pool with the schedule's AVAILABLE seats and
// the per-grade stock counters with each grade's seat count.
func (s *SeatPoolService) Initialize(ctx context.Context, scheduleID int64) (int, error) {
	seats, err := s.seats.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("load seats: %w", err)
	}

	byZone := make(map[string][]string)
	stock := make(map[domain.Grade]int64)
	seeded := 0

	for _, seat := range seats {
		if _, ok := byZone[seat.Zone]; !ok {
			byZone[seat.Zone] = nil
		}
		if !seat.IsAvailable() {
			continue
		}
		byZone[seat.Zone] = append(byZone[seat.Zone], seat.SeatNumber)
		stock[seat.Grade]++
		seeded++
	}

	for zone, numbers := range byZone {
		if err := s.pool.Seed(ctx, scheduleID, zone, numbers); err != nil {
			return 0, err
		}
	}

	for _, grade := range domain.Grades() {
		if err := s.state.SeedStock(ctx, scheduleID, grade, stock[grade]); err != nil {
			return 0, fmt.Errorf("seed stock %s: %w", grade, err)
		}
	}

	s.logger.Info("seat pool initialized", "schedule_id", scheduleID, "zones", len(byZone), "seats", seeded)

	return seeded, nil
}

// Select removes the seat from its pool. Only one concurrent caller wins.
func (s *SeatPoolService) Select(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error) {
	taken, err := s.pool.Take(ctx, scheduleID, zone, seatNumber)
	if err != nil || !taken {
		return false, err
	}

	s.mirror(ctx, scheduleID, zone, seatNumber, domain.SeatHeld)

	return true, nil
}

// Claim removes a seat without touching the durable row; the caller writes
// the final status in its own transaction.
func (s *SeatPoolService) Claim(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error) {
	return s.pool.Take(ctx, scheduleID, zone, seatNumber)
}

func (s *SeatPoolService) Return(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error) {
	added, err := s.pool.Put(ctx, scheduleID, zone, seatNumber)
	if err != nil {
		return false, err
	}

	s.mirror(ctx, scheduleID, zone, seatNumber, domain.SeatAvailable)

	return added, nil
}

func (s *SeatPoolService) MarkSold(ctx context.Context, scheduleID int64, zone, seatNumber string) {
	s.mirror(ctx, scheduleID, zone, seatNumber, domain.SeatSold)
}

func (s *SeatPoolService) mirror(ctx context.Context, scheduleID int64, zone, seatNumber string, status domain.SeatStatus) {
	if err := s.seats.UpdateStatus(ctx, scheduleID, zone, seatNumber, status); err != nil {
		s.logger.Warn("seat status mirror failed",
			"schedule_id", scheduleID, "zone", zone, "seat", seatNumber, "status", status, "error", err)
	}
}

func (s *SeatPoolService) Available(ctx context.Context, scheduleID int64, zone string) ([]string, error) {
	members, err := s.pool.Members(ctx, scheduleID, zone)
	if err != nil {
		return nil, err
	}

	sort.Strings(members)

	return members, nil
}

func (s *SeatPoolService) RemainingTotal(ctx context.Context, scheduleID int64) (int64, error) {
	zones, err := s.seats.Zones(ctx, scheduleID)
	if err != nil {
		return 0, err
	}

	counts, err := s.pool.Counts(ctx, scheduleID, zones)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	return total, nil
}

// LotteryQuota is half of the grade's seats, rounded down.
func (s *SeatPoolService) LotteryQuota(ctx context.Context, scheduleID int64, grade domain.Grade) (int, error) {
	total, err := s.seats.CountByGrade(ctx, scheduleID, grade)
	if err != nil {
		return 0, err
	}

	return total / 2, nil
}

func (s *SeatPoolService) RemainingForGrade(ctx context.Context, scheduleID int64, grade domain.Grade) (int, error) {
	quota, err := s.LotteryQuota(ctx, scheduleID, grade)
	if err != nil {
		return 0, err
	}

	reserved, err := s.reservations.SumLotteryQuantity(ctx, scheduleID, grade)
	if err != nil {
		return 0, err
	}

	return max(quota-reserved, 0), nil
}

// AvailableForGrade lists every pooled seat of the grade in a stable order.
func (s *SeatPoolService) AvailableForGrade(ctx context.Context, scheduleID int64, grade domain.Grade) ([]PoolSeat, error) {
	zones, err := s.seats.ZonesByGrade(ctx, scheduleID, grade)
	if err != nil {
		return nil, err
	}

	var out []PoolSeat
	for _, zone := range zones {
		members, err := s.pool.Members(ctx, scheduleID, zone)
		if err != nil {
			return nil, err
		}

		sort.Strings(members)
		for _, m := range members {
			out = append(out, PoolSeat{Zone: zone, SeatNumber: m})
		}
	}

	return out, nil
}
