package domain

import "errors"

// Capacity
var (
	ErrQueueFull        = errors.New("queue is full")
	ErrNotInQueue       = errors.New("user is not in queue")
	ErrSoldOut          = errors.New("sold out")
	ErrSeatAlreadyTaken = errors.New("seat already taken")
)

// Authorization
var (
	ErrInvalidOrExpiredToken = errors.New("entry token is invalid or expired")
	ErrSeatHoldNotOwned      = errors.New("seat hold is not owned by user")
)

// Time windows
var (
	ErrTicketNotOpened      = errors.New("ticket sale has not opened")
	ErrTicketClosed         = errors.New("ticket sale is closed")
	ErrLotteryEntryClosed   = errors.New("lottery entry is closed")
	ErrLotteryPaymentClosed = errors.New("lottery payment is closed")
	ErrLiveTrackClosed      = errors.New("live track is closed")
)

// Quota
var (
	ErrLotteryMaxQuantityExceeded = errors.New("lottery quantity per user exceeded")
	ErrLotteryQuotaExceeded       = errors.New("lottery quota for grade exceeded")
	ErrLiveMaxQuantityExceeded    = errors.New("live quantity per user exceeded")
	ErrAlreadyParticipated        = errors.New("already participated in this schedule")
)

// Lookup
var (
	ErrScheduleNotFound    = errors.New("schedule not found")
	ErrSeatNotFound        = errors.New("seat not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrPaymentNotFound     = errors.New("payment not found")
)

// Consistency
var (
	ErrPaymentAmountMismatch   = errors.New("payment amount mismatch")
	ErrPaymentAlreadyCompleted = errors.New("payment already completed")
	ErrPaymentNotPaid          = errors.New("payment was not paid at gateway")
	ErrReservationNotPending   = errors.New("reservation is not pending")
	ErrPaymentTimeout          = errors.New("payment deadline passed")
)

var (
	ErrInvalidGrade              = errors.New("invalid grade")
	ErrInvalidInput              = errors.New("invalid input")
	ErrCancellationNotAvailable  = errors.New("reservation cannot be cancelled")
	ErrCancellationWindowExpired = errors.New("cancellation window is not open")
)
