package domain

import "time"

type Track string

const (
	TrackLottery Track = "LOTTERY"
	TrackLive    Track = "LIVE"
)

type ReservationStatus string

const (
	ReservationPending         ReservationStatus = "PENDING"
	ReservationPaidPendingSeat ReservationStatus = "PAID_PENDING_SEAT"
	ReservationAssigned        ReservationStatus = "ASSIGNED"
	ReservationCancelled       ReservationStatus = "CANCELLED"
	ReservationRefunded        ReservationStatus = "REFUNDED"
)

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationCancelled || s == ReservationRefunded
}

type Reservation struct {
	ID         int64
	UserID     int64
	ScheduleID int64
	Grade      Grade
	Quantity   int
	Track      Track
	Status     ReservationStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r *Reservation) Amount() int64 {
	return r.Grade.Price() * int64(r.Quantity)
}

type ReservationSeatStatus string

const (
	ReservationSeatPending   ReservationSeatStatus = "PENDING"
	ReservationSeatAssigned  ReservationSeatStatus = "ASSIGNED"
	ReservationSeatCancelled ReservationSeatStatus = "CANCELLED"
)

type ReservationSeat struct {
	ID            int64
	ReservationID int64
	ScheduleID    int64
	SeatID        int64
	Zone          string
	SeatNumber    string
	Status        ReservationSeatStatus
	AssignedAt    *time.Time
	CreatedAt     time.Time
}

type LotteryResultType string

const (
	LotteryPaymentPending LotteryResultType = "PAYMENT_PENDING"
	LotteryWon            LotteryResultType = "WON"
	LotteryAssigned       LotteryResultType = "ASSIGNED"
	LotteryLost           LotteryResultType = "LOST"
)

// LotteryResultFor maps a lottery reservation status to what the entrant sees.
func LotteryResultFor(status ReservationStatus) LotteryResultType {
	switch status {
	case ReservationPaidPendingSeat:
		return LotteryWon
	case ReservationAssigned:
		return LotteryAssigned
	case ReservationCancelled, ReservationRefunded:
		return LotteryLost
	default:
		return LotteryPaymentPending
	}
}

type LotteryResult struct {
	ReservationID int64
	ScheduleID    int64
	Grade         Grade
	Quantity      int
	Result        LotteryResultType
	Seats         []ReservationSeat
}
