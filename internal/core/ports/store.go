package ports

import (
	"context"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

type AdmitResult struct {
	Admitted    []int64
	ActiveCount int64
	QueueSize   int64
}

type QueueStore interface {
	// Enter inserts the user if the queue has room. It returns false when the
	// user was already queued and domain.ErrQueueFull when at capacity.
	Enter(ctx context.Context, scheduleID, userID int64, at time.Time, maxSize int) (bool, error)
	// Rank is 0-based; ok is false when the user is not queued.
	Rank(ctx context.Context, scheduleID, userID int64) (rank int64, ok bool, err error)
	Size(ctx context.Context, scheduleID int64) (int64, error)
	Remove(ctx context.Context, scheduleID, userID int64) error
	Touch(ctx context.Context, scheduleID, userID int64, at time.Time, ttl time.Duration) error
	// IsActive reports whether the user holds a slot in the active set.
	IsActive(ctx context.Context, scheduleID, userID int64) (bool, error)
	Admit(ctx context.Context, scheduleID int64, batch, maxActive int, now time.Time, activeTimeout time.Duration) (AdmitResult, error)
	RemoveStale(ctx context.Context, scheduleID int64) ([]int64, error)
	ActiveSchedules(ctx context.Context) ([]int64, error)
	Retire(ctx context.Context, scheduleID int64) error
}

type TokenStore interface {
	Save(ctx context.Context, userID, scheduleID int64, token string, ttl time.Duration) error
	Get(ctx context.Context, userID, scheduleID int64) (string, error)
	// ConsumeIfMatch deletes the token only when it equals token.
	ConsumeIfMatch(ctx context.Context, userID, scheduleID int64, token string) (bool, error)
	Delete(ctx context.Context, userID, scheduleID int64) (bool, error)
}

type SeatPoolStore interface {
	Seed(ctx context.Context, scheduleID int64, zone string, seatNumbers []string) error
	Take(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error)
	Put(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error)
	Members(ctx context.Context, scheduleID int64, zone string) ([]string, error)
	Counts(ctx context.Context, scheduleID int64, zones []string) (map[string]int64, error)
}

type HoldStore interface {
	Acquire(ctx context.Context, scheduleID int64, zone, seatNumber string, userID int64, ttl time.Duration) (bool, error)
	Release(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error)
	ReleaseOwned(ctx context.Context, scheduleID int64, zone, seatNumber string, userID int64) (bool, error)
	Owner(ctx context.Context, scheduleID int64, zone, seatNumber string) (userID int64, ok bool, err error)
	TTL(ctx context.Context, scheduleID int64, zone, seatNumber string) (time.Duration, error)
}

type DistributedLocker interface {
	// TryLock never waits. ok is false when another holder owns the lease.
	TryLock(ctx context.Context, name string, lease time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, name, token string) error
}

type TrackStateStore interface {
	MarkLiveClosed(ctx context.Context, scheduleID int64, at time.Time) (bool, error)
	IsLiveClosed(ctx context.Context, scheduleID int64) (bool, error)
	// QueueEmptySince records now if no mark exists and returns the mark.
	QueueEmptySince(ctx context.Context, scheduleID int64, now time.Time) (time.Time, error)
	ClearQueueEmptySince(ctx context.Context, scheduleID int64) error

	ClaimLotteryAssignment(ctx context.Context, scheduleID int64) (bool, error)
	ReleaseLotteryAssignment(ctx context.Context, scheduleID int64) error

	MarkLotteryPaid(ctx context.Context, scheduleID, userID int64) error
	IsLotteryPaid(ctx context.Context, scheduleID, userID int64) (bool, error)

	SeedStock(ctx context.Context, scheduleID int64, grade domain.Grade, count int64) error
	// ReserveStock takes n units of the grade's unsold stock, reporting
	// false without side effects when fewer than n are left.
	ReserveStock(ctx context.Context, scheduleID int64, grade domain.Grade, n int64) (bool, error)
	AdjustStock(ctx context.Context, scheduleID int64, grade domain.Grade, delta int64) (int64, error)
}

type PaymentTimerStore interface {
	Start(ctx context.Context, reservationID int64, ttl time.Duration) error
	Cancel(ctx context.Context, reservationID int64) (bool, error)
	Remaining(ctx context.Context, reservationID int64) (time.Duration, error)
}

type ExpiryKind int

const (
	ExpiredPaymentTimer ExpiryKind = iota + 1
	ExpiredHold
)

type ExpiryEvent struct {
	Kind          ExpiryKind
	Key           string
	ReservationID int64
	ScheduleID    int64
	Zone          string
	SeatNumber    string
}

type ExpirySource interface {
	// Listen blocks until ctx is done, calling handle for every recognised key.
	Listen(ctx context.Context, handle func(context.Context, ExpiryEvent)) error
}
