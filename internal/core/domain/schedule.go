package domain

import "time"

type ScheduleStatus string

const (
	ScheduleUpcoming ScheduleStatus = "UPCOMING"
	ScheduleOpen     ScheduleStatus = "OPEN"
	ScheduleClosed   ScheduleStatus = "CLOSED"
)

type Schedule struct {
	ID              int64
	ConcertID       int64
	StartTime       time.Time
	TicketOpenTime  time.Time
	TicketCloseTime time.Time
	Status          ScheduleStatus
}

// TrackPolicy holds the time offsets and per-user caps that shape both
// tracks of a schedule. Offsets named "Before" are subtracted from the
// ticket-open time, "After" offsets are added to it.
type TrackPolicy struct {
	LotteryOpenBefore         time.Duration
	LotteryEntryCloseBefore   time.Duration
	LotteryPaymentCloseBefore time.Duration
	LotteryAssignAfter        time.Duration

	LiveDuration    time.Duration
	QueueEmptyDwell time.Duration
	MinOpenDuration time.Duration

	HoldDuration    time.Duration
	PaymentDeadline time.Duration

	// PaymentReconcileAfter is how long a payment may stay PENDING before
	// the gateway is asked for its outcome.
	PaymentReconcileAfter time.Duration

	LotteryMaxPerUser int
	LiveMaxPerUser    int

	CancelStartAfter time.Duration
	CancelWindow     time.Duration
}

func DefaultTrackPolicy() TrackPolicy {
	return TrackPolicy{
		LotteryOpenBefore:         30 * time.Minute,
		LotteryEntryCloseBefore:   20 * time.Minute,
		LotteryPaymentCloseBefore: 15 * time.Minute,
		LotteryAssignAfter:        60 * time.Minute,
		LiveDuration:              60 * time.Minute,
		QueueEmptyDwell:           10 * time.Minute,
		MinOpenDuration:           30 * time.Minute,
		HoldDuration:              10 * time.Minute,
		PaymentDeadline:           5 * time.Minute,
		PaymentReconcileAfter:     5 * time.Minute,
		LotteryMaxPerUser:         2,
		LiveMaxPerUser:            4,
		CancelStartAfter:          2 * time.Hour,
		CancelWindow:              24 * time.Hour,
	}
}

func (p TrackPolicy) LotteryOpenAt(s *Schedule) time.Time {
	return s.TicketOpenTime.Add(-p.LotteryOpenBefore)
}

func (p TrackPolicy) LotteryEntryCloseAt(s *Schedule) time.Time {
	return s.TicketOpenTime.Add(-p.LotteryEntryCloseBefore)
}

func (p TrackPolicy) LotteryPaymentCloseAt(s *Schedule) time.Time {
	return s.TicketOpenTime.Add(-p.LotteryPaymentCloseBefore)
}

func (p TrackPolicy) LotteryAssignAt(s *Schedule) time.Time {
	return s.TicketOpenTime.Add(p.LotteryAssignAfter)
}

// CheckLotteryEntry reports whether a new lottery entry may be created at now.
func (p TrackPolicy) CheckLotteryEntry(s *Schedule, now time.Time) error {
	if now.Before(p.LotteryOpenAt(s)) {
		return ErrTicketNotOpened
	}
	if !now.Before(p.LotteryEntryCloseAt(s)) {
		return ErrLotteryEntryClosed
	}
	return nil
}

func (p TrackPolicy) CheckLotteryPayment(s *Schedule, now time.Time) error {
	if !now.Before(p.LotteryPaymentCloseAt(s)) {
		return ErrLotteryPaymentClosed
	}
	return nil
}

// CheckLiveWindow only covers the wall-clock part of the live track; the
// closed flag and remaining stock are checked by the track itself.
func (p TrackPolicy) CheckLiveWindow(s *Schedule, now time.Time) error {
	if now.Before(s.TicketOpenTime) {
		return ErrTicketNotOpened
	}
	if !s.TicketCloseTime.IsZero() && !now.Before(s.TicketCloseTime) {
		return ErrTicketClosed
	}
	return nil
}

// ShouldCloseLive evaluates the two live-close conditions. queueEmptySince is
// the zero time when the queue currently has members.
func (p TrackPolicy) ShouldCloseLive(s *Schedule, now, queueEmptySince time.Time) bool {
	openFor := now.Sub(s.TicketOpenTime)
	if openFor < 0 {
		return false
	}
	if openFor >= p.LiveDuration {
		return true
	}
	if queueEmptySince.IsZero() || openFor < p.MinOpenDuration {
		return false
	}
	return now.Sub(queueEmptySince) >= p.QueueEmptyDwell
}

type CancellationWindow struct {
	StartsAt time.Time
	EndsAt   time.Time
}

func (w CancellationWindow) Contains(t time.Time) bool {
	return !t.Before(w.StartsAt) && t.Before(w.EndsAt)
}

func (p TrackPolicy) CancellationWindow(s *Schedule) CancellationWindow {
	start := s.TicketOpenTime.Add(p.CancelStartAfter)
	return CancellationWindow{StartsAt: start, EndsAt: start.Add(p.CancelWindow)}
}
