package domain

import "time"

const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentRefunded  = "payment.refunded"
	EventLotteryAssigned  = "lottery.assigned"
)

type PaymentCompletedEvent struct {
	PaymentID     int64     `json:"payment_id"`
	ReservationID int64     `json:"reservation_id"`
	UserID        int64     `json:"user_id"`
	ScheduleID    int64     `json:"schedule_id"`
	Track         Track     `json:"track"`
	Amount        int64     `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}

type PaymentRefundedEvent struct {
	PaymentID     int64     `json:"payment_id"`
	ReservationID int64     `json:"reservation_id"`
	UserID        int64     `json:"user_id"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason"`
	RefundedAt    time.Time `json:"refunded_at"`
}

type LotteryAssignedEvent struct {
	ScheduleID   int64     `json:"schedule_id"`
	Reservations int       `json:"reservations"`
	Seats        int       `json:"seats"`
	AssignedAt   time.Time `json:"assigned_at"`
}
