package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrTicketNotOpened, http.StatusForbidden},
	{domain.ErrInvalidOrExpiredToken, http.StatusForbidden},
	{domain.ErrSeatHoldNotOwned, http.StatusForbidden},

	{domain.ErrQueueFull, http.StatusConflict},
	{domain.ErrSoldOut, http.StatusConflict},
	{domain.ErrSeatAlreadyTaken, http.StatusConflict},
	{domain.ErrTicketClosed, http.StatusConflict},
	{domain.ErrLotteryEntryClosed, http.StatusConflict},
	{domain.ErrLotteryPaymentClosed, http.StatusConflict},
	{domain.ErrLiveTrackClosed, http.StatusConflict},
	{domain.ErrLotteryMaxQuantityExceeded, http.StatusConflict},
	{domain.ErrLotteryQuotaExceeded, http.StatusConflict},
	{domain.ErrLiveMaxQuantityExceeded, http.StatusConflict},
	{domain.ErrAlreadyParticipated, http.StatusConflict},
	{domain.ErrPaymentAlreadyCompleted, http.StatusConflict},
	{domain.ErrReservationNotPending, http.StatusConflict},
	{domain.ErrPaymentTimeout, http.StatusConflict},
	{domain.ErrCancellationNotAvailable, http.StatusConflict},
	{domain.ErrCancellationWindowExpired, http.StatusConflict},

	{domain.ErrPaymentAmountMismatch, http.StatusUnprocessableEntity},
	{domain.ErrPaymentNotPaid, http.StatusUnprocessableEntity},

	{domain.ErrNotInQueue, http.StatusNotFound},
	{domain.ErrScheduleNotFound, http.StatusNotFound},
	{domain.ErrSeatNotFound, http.StatusNotFound},
	{domain.ErrReservationNotFound, http.StatusNotFound},
	{domain.ErrPaymentNotFound, http.StatusNotFound},

	{domain.ErrInvalidGrade, http.StatusBadRequest},
	{domain.ErrInvalidInput, http.StatusBadRequest},
}

// StatusFor maps a service error to its HTTP status; unknown errors are 500.
func StatusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func respondError(c echo.Context, logger *slog.Logger, err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		return c.JSON(status, echo.Map{"error": "internal server error"})
	}

	return c.JSON(status, echo.Map{"error": err.Error()})
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidInput
	}
	return id, nil
}
