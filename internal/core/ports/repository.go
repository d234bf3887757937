package ports

import (
	"context"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

type ScheduleRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Schedule, error)
	// ListOpeningBetween returns schedules whose ticket-open time falls in [from, to].
	ListOpeningBetween(ctx context.Context, from, to time.Time) ([]domain.Schedule, error)
}

type SeatRepository interface {
	ListBySchedule(ctx context.Context, scheduleID int64) ([]domain.Seat, error)
	GetBySeatNumber(ctx context.Context, scheduleID int64, zone, seatNumber string) (*domain.Seat, error)
	UpdateStatus(ctx context.Context, scheduleID int64, zone, seatNumber string, status domain.SeatStatus) error
	CountByGrade(ctx context.Context, scheduleID int64, grade domain.Grade) (int, error)
	ZonesByGrade(ctx context.Context, scheduleID int64, grade domain.Grade) ([]string, error)
	Zones(ctx context.Context, scheduleID int64) ([]string, error)
}

type ReservationRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	FindActive(ctx context.Context, userID, scheduleID int64) (*domain.Reservation, error)
	ListByUser(ctx context.Context, userID, scheduleID int64, track domain.Track) ([]domain.Reservation, error)
	// ListByStatus is ordered by id ascending.
	ListByStatus(ctx context.Context, scheduleID int64, track domain.Track, status domain.ReservationStatus) ([]domain.Reservation, error)
	SumLotteryQuantity(ctx context.Context, scheduleID int64, grade domain.Grade) (int, error)
	SumUserLotteryQuantity(ctx context.Context, userID, scheduleID int64) (int, error)

	Create(ctx context.Context, r *domain.Reservation) error
	// CreateLotteryWithinQuota inserts r only if the grade's non-terminal lottery
	// quantity plus r.Quantity stays within quota, serialised per (schedule, grade).
	CreateLotteryWithinQuota(ctx context.Context, r *domain.Reservation, quota int) error
	// TransitionStatus is a compare-and-set; it reports whether the row moved.
	TransitionStatus(ctx context.Context, id int64, from, to domain.ReservationStatus) (bool, error)
	IncrementQuantity(ctx context.Context, id int64, max int) (bool, error)
	// DecrementQuantity drops a PENDING reservation's quantity by one and cancels
	// it when nothing remains. It returns the quantity left.
	DecrementQuantity(ctx context.Context, id int64) (int, error)
}

type ReservationSeatRepository interface {
	Create(ctx context.Context, rs *domain.ReservationSeat) error
	ListByReservation(ctx context.Context, reservationID int64) ([]domain.ReservationSeat, error)
	ListByStatus(ctx context.Context, reservationID int64, status domain.ReservationSeatStatus) ([]domain.ReservationSeat, error)
	ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.ReservationSeat, error)
	FindPendingBySeat(ctx context.Context, scheduleID int64, zone, seatNumber string) (*domain.ReservationSeat, error)
	TransitionStatus(ctx context.Context, id int64, from, to domain.ReservationSeatStatus) (bool, error)
	// AssignLottery writes ASSIGNED rows and marks the reservation ASSIGNED with
	// its quantity set to len(seats), in one transaction.
	AssignLottery(ctx context.Context, reservationID int64, seats []domain.ReservationSeat) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByMerchantUID(ctx context.Context, merchantUID string) (*domain.Payment, error)
	FindLatestByReservation(ctx context.Context, reservationID int64) (*domain.Payment, error)
	MarkCompleted(ctx context.Context, id int64, impUID string, paidAt time.Time) (bool, error)
	TransitionStatus(ctx context.Context, id int64, from, to domain.PaymentStatus) (bool, error)
	CancelPendingByReservation(ctx context.Context, reservationID int64) (int64, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Payment, error)
}
