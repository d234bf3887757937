package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
	"github.com/srgjo27/fair_ticket/internal/platform/clock"
	"github.com/srgjo27/fair_ticket/internal/platform/metrics"
	"golang.org/x/sync/errgroup"
)

type EnterLotteryRequest struct {
	UserID     int64
	ScheduleID int64
	Grade      domain.Grade
	Quantity   int
	Token      string
}

type LotteryEntry struct {
	Reservation     *domain.Reservation
	PaymentDeadline time.Time
}

type LotteryDeps struct {
	Schedules    ports.ScheduleRepository
	Seats        ports.SeatRepository
	Reservations ports.ReservationRepository
	ResSeats     ports.ReservationSeatRepository
	Pool         *SeatPoolService
	Tokens       *EntryTokenService
	State        ports.TrackStateStore
	Timers       ports.PaymentTimerStore
	Publisher    ports.EventPublisher
}

// LotteryService runs the quota-capped lottery track and, once the live
// track is over, deals real seats to paid entrants in random order.
type LotteryService struct {
	schedules    ports.ScheduleRepository
	seats        ports.SeatRepository
	reservations ports.ReservationRepository
	resSeats     ports.ReservationSeatRepository
	pool         *SeatPoolService
	tokens       *EntryTokenService
	state        ports.TrackStateStore
	timers       ports.PaymentTimerStore
	publisher    ports.EventPublisher
	policy       domain.TrackPolicy
	clock        clock.Clock
	logger       *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewLotteryService uses rng for shuffling; nil picks a randomly seeded source.
func NewLotteryService(deps LotteryDeps, policy domain.TrackPolicy, rng *rand.Rand, clk clock.Clock, logger *slog.Logger) *LotteryService {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &LotteryService{
		schedules:    deps.Schedules,
		seats:        deps.Seats,
		reservations: deps.Reservations,
		resSeats:     deps.ResSeats,
		pool:         deps.Pool,
		tokens:       deps.Tokens,
		state:        deps.State,
		timers:       deps.Timers,
		publisher:    deps.Publisher,
		policy:       policy,
		clock:        clk,
		logger:       logger,
		rng:          rng,
	}
}

func (s *LotteryService) Enter(ctx context.Context, req EnterLotteryRequest) (*LotteryEntry, error) {
	valid, err := s.tokens.Validate(ctx, req.UserID, req.ScheduleID, req.Token)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	schedule, err := s.schedules.GetByID(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.policy.CheckLotteryEntry(schedule, now); err != nil {
		return nil, err
	}

	if _, err := domain.ParseGrade(string(req.Grade)); err != nil {
		return nil, err
	}

	can, err := s.CanParticipate(ctx, req.ScheduleID, req.UserID)
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, domain.ErrAlreadyParticipated
	}

	held, err := s.reservations.SumUserLotteryQuantity(ctx, req.UserID, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 || req.Quantity > s.policy.LotteryMaxPerUser-held {
		return nil, domain.ErrLotteryMaxQuantityExceeded
	}

	// rejections up to here leave the entry token usable
	fits, err := s.CanEnterQuota(ctx, req.ScheduleID, req.Grade, req.Quantity)
	if err != nil {
		return nil, err
	}
	if !fits {
		return nil, domain.ErrLotteryQuotaExceeded
	}

	quota, err := s.pool.LotteryQuota(ctx, req.ScheduleID, req.Grade)
	if err != nil {
		return nil, err
	}

	reserved, err := s.state.ReserveStock(ctx, req.ScheduleID, req.Grade, int64(req.Quantity))
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, domain.ErrSoldOut
	}

	if err := s.tokens.ValidateAndConsume(ctx, req.UserID, req.ScheduleID, req.Token); err != nil {
		s.restoreStock(ctx, req)
		return nil, err
	}

	res := &domain.Reservation{
		UserID:     req.UserID,
		ScheduleID: req.ScheduleID,
		Grade:      req.Grade,
		Quantity:   req.Quantity,
		Track:      domain.TrackLottery,
		Status:     domain.ReservationPending,
		CreatedAt:  now,
	}
	if err := s.reservations.CreateLotteryWithinQuota(ctx, res, quota); err != nil {
		s.restoreStock(ctx, req)
		return nil, err
	}

	if err := s.timers.Start(ctx, res.ID, s.policy.PaymentDeadline); err != nil {
		s.logger.Error("payment timer start failed", "reservation_id", res.ID, "error", err)
	}

	s.logger.Info("lottery reservation created",
		"reservation_id", res.ID, "user_id", req.UserID, "schedule_id", req.ScheduleID,
		"grade", req.Grade, "quantity", req.Quantity)

	return &LotteryEntry{Reservation: res, PaymentDeadline: now.Add(s.policy.PaymentDeadline)}, nil
}

func (s *LotteryService) restoreStock(ctx context.Context, req EnterLotteryRequest) {
	if _, err := s.state.AdjustStock(ctx, req.ScheduleID, req.Grade, int64(req.Quantity)); err != nil {
		s.logger.Error("stock rollback failed", "schedule_id", req.ScheduleID, "grade", req.Grade, "error", err)
	}
}

func (s *LotteryService) CanEnterQuota(ctx context.Context, scheduleID int64, grade domain.Grade, quantity int) (bool, error) {
	remaining, err := s.pool.RemainingForGrade(ctx, scheduleID, grade)
	if err != nil {
		return false, err
	}

	return quantity > 0 && quantity <= remaining, nil
}

// CanParticipate is false for users who paid a lottery entry or already hold
// any open reservation for the schedule.
func (s *LotteryService) CanParticipate(ctx context.Context, scheduleID, userID int64) (bool, error) {
	paid, err := s.state.IsLotteryPaid(ctx, scheduleID, userID)
	if err != nil {
		return false, err
	}
	if paid {
		return false, nil
	}

	_, err = s.reservations.FindActive(ctx, userID, scheduleID)
	if errors.Is(err, domain.ErrReservationNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	return false, nil
}

func (s *LotteryService) OnPaymentCompleted(ctx context.Context, res *domain.Reservation) error {
	moved, err := s.reservations.TransitionStatus(ctx, res.ID, domain.ReservationPending, domain.ReservationPaidPendingSeat)
	if err != nil {
		return err
	}
	if !moved {
		return domain.ErrReservationNotPending
	}

	if err := s.state.MarkLotteryPaid(ctx, res.ScheduleID, res.UserID); err != nil {
		return fmt.Errorf("mark lottery paid: %w", err)
	}

	s.logger.Info("lottery entry paid", "reservation_id", res.ID, "user_id", res.UserID)

	return nil
}

// AssignSeats runs the allocation at most once per schedule. A failed run
// drops the claim so a later tick can finish the reservations left over.
func (s *LotteryService) AssignSeats(ctx context.Context, scheduleID int64) (int, error) {
	claimed, err := s.state.ClaimLotteryAssignment(ctx, scheduleID)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, nil
	}

	assigned, err := s.assign(ctx, scheduleID)
	if err != nil {
		if relErr := s.state.ReleaseLotteryAssignment(ctx, scheduleID); relErr != nil {
			s.logger.Error("lottery claim release failed", "schedule_id", scheduleID, "error", relErr)
		}
	}

	return assigned, err
}

func (s *LotteryService) assign(ctx context.Context, scheduleID int64) (int, error) {
	paid, err := s.reservations.ListByStatus(ctx, scheduleID, domain.TrackLottery, domain.ReservationPaidPendingSeat)
	if err != nil {
		return 0, err
	}

	sort.Slice(paid, func(i, j int) bool { return paid[i].ID < paid[j].ID })

	byGrade := make(map[domain.Grade][]domain.Reservation)
	for _, r := range paid {
		byGrade[r.Grade] = append(byGrade[r.Grade], r)
	}

	var grades []domain.Grade
	for _, grade := range domain.Grades() {
		if len(byGrade[grade]) > 0 {
			grades = append(grades, grade)
		}
	}

	// Listings load concurrently. Shuffles must run in grade order for a
	// seeded rng to reproduce an assignment.
	pools := make([][]PoolSeat, len(grades))
	g, gctx := errgroup.WithContext(ctx)
	for i, grade := range grades {
		g.Go(func() error {
			available, err := s.pool.AvailableForGrade(gctx, scheduleID, grade)
			if err != nil {
				return fmt.Errorf("grade %s: %w", grade, err)
			}
			pools[i] = available
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var (
		errs         []error
		seatsTotal   int
		reservations int
	)
	for i, grade := range grades {
		n, done, err := s.assignGrade(ctx, scheduleID, grade, byGrade[grade], pools[i])
		seatsTotal += n
		reservations += done
		if err != nil {
			errs = append(errs, fmt.Errorf("grade %s: %w", grade, err))
		}
	}

	metrics.LotterySeatsAssigned.Add(float64(seatsTotal))
	s.logger.Info("lottery seats assigned",
		"schedule_id", scheduleID, "reservations", reservations, "seats", seatsTotal, "failed_grades", len(errs))

	if reservations > 0 {
		event := domain.LotteryAssignedEvent{
			ScheduleID:   scheduleID,
			Reservations: reservations,
			Seats:        seatsTotal,
			AssignedAt:   s.clock.Now(),
		}
		if err := s.publisher.Publish(ctx, domain.EventLotteryAssigned, event); err != nil {
			s.logger.Warn("lottery event publish failed", "schedule_id", scheduleID, "error", err)
		}
	}

	return seatsTotal, errors.Join(errs...)
}

func (s *LotteryService) assignGrade(ctx context.Context, scheduleID int64, grade domain.Grade, group []domain.Reservation, available []PoolSeat) (int, int, error) {
	demand := 0
	for _, r := range group {
		demand += r.Quantity
	}
	if demand > len(available) {
		s.logger.Error("lottery demand exceeds pool",
			"schedule_id", scheduleID, "grade", grade, "demand", demand, "pool", len(available))
		return 0, 0, domain.ErrSeatAlreadyTaken
	}

	s.shuffle(available)

	var errs []error
	assigned, done, offset := 0, 0, 0
	for _, r := range group {
		slice := available[offset : offset+r.Quantity]
		offset += r.Quantity

		rows := make([]domain.ReservationSeat, 0, len(slice))
		for _, ps := range slice {
			row, err := s.claimSeat(ctx, scheduleID, ps)
			if err != nil {
				s.logger.Error("lottery seat claim failed", "reservation_id", r.ID, "seat", ps.SeatNumber, "error", err)
				continue
			}
			row.ReservationID = r.ID
			rows = append(rows, *row)
		}

		if len(rows) == 0 {
			errs = append(errs, fmt.Errorf("reservation %d: %w", r.ID, domain.ErrSeatAlreadyTaken))
			continue
		}

		if err := s.resSeats.AssignLottery(ctx, r.ID, rows); err != nil {
			errs = append(errs, fmt.Errorf("reservation %d: %w", r.ID, err))
			for _, row := range rows {
				if _, err := s.pool.Return(ctx, scheduleID, row.Zone, row.SeatNumber); err != nil {
					s.logger.Error("seat return failed", "seat", row.SeatNumber, "error", err)
				}
			}
			continue
		}

		assigned += len(rows)
		done++
	}

	return assigned, done, errors.Join(errs...)
}

func (s *LotteryService) claimSeat(ctx context.Context, scheduleID int64, ps PoolSeat) (*domain.ReservationSeat, error) {
	ok, err := s.pool.Claim(ctx, scheduleID, ps.Zone, ps.SeatNumber)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSeatAlreadyTaken
	}

	seat, err := s.seats.GetBySeatNumber(ctx, scheduleID, ps.Zone, ps.SeatNumber)
	if err != nil {
		if _, retErr := s.pool.Return(ctx, scheduleID, ps.Zone, ps.SeatNumber); retErr != nil {
			s.logger.Error("seat return failed", "seat", ps.SeatNumber, "error", retErr)
		}
		return nil, err
	}

	return &domain.ReservationSeat{
		ScheduleID: scheduleID,
		SeatID:     seat.ID,
		Zone:       ps.Zone,
		SeatNumber: ps.SeatNumber,
		Status:     domain.ReservationSeatAssigned,
	}, nil
}

// shuffle is an in-place Fisher-Yates pass from the last index down to 1.
func (s *LotteryService) shuffle(seats []PoolSeat) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	for i := len(seats) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		seats[i], seats[j] = seats[j], seats[i]
	}
}

func (s *LotteryService) Result(ctx context.Context, reservationID, userID int64) (*domain.LotteryResult, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID || res.Track != domain.TrackLottery {
		return nil, domain.ErrReservationNotFound
	}

	return s.result(ctx, res)
}

func (s *LotteryService) MyResults(ctx context.Context, scheduleID, userID int64) ([]domain.LotteryResult, error) {
	list, err := s.reservations.ListByUser(ctx, userID, scheduleID, domain.TrackLottery)
	if err != nil {
		return nil, err
	}

	out := make([]domain.LotteryResult, 0, len(list))
	for i := range list {
		r, err := s.result(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}

	return out, nil
}

func (s *LotteryService) result(ctx context.Context, res *domain.Reservation) (*domain.LotteryResult, error) {
	out := &domain.LotteryResult{
		ReservationID: res.ID,
		ScheduleID:    res.ScheduleID,
		Grade:         res.Grade,
		Quantity:      res.Quantity,
		Result:        domain.LotteryResultFor(res.Status),
	}

	if res.Status == domain.ReservationAssigned {
		seats, err := s.resSeats.ListByReservation(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		out.Seats = seats
	}

	return out, nil
}
