package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/services"
)

// TicketHandler serves both sale tracks: lottery entry/results and live seat
// selection.
type TicketHandler struct {
	lottery *services.LotteryService
	live    *services.LiveTrackService
	pool    *services.SeatPoolService
	logger  *slog.Logger
}

func NewTicketHandler(lottery *services.LotteryService, live *services.LiveTrackService, pool *services.SeatPoolService, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{lottery: lottery, live: live, pool: pool, logger: logger}
}

type enterLotteryRequest struct {
	Grade    string `json:"grade" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=4"`
	Token    string `json:"token" validate:"required"`
}

type lotteryEntryResponse struct {
	ReservationID   int64                    `json:"reservation_id"`
	Grade           domain.Grade             `json:"grade"`
	Quantity        int                      `json:"quantity"`
	Status          domain.ReservationStatus `json:"status"`
	PaymentDeadline time.Time                `json:"payment_deadline"`
}

type seatResponse struct {
	Zone       string `json:"zone"`
	SeatNumber string `json:"seat_number"`
	Status     string `json:"status"`
}

type lotteryResultResponse struct {
	ReservationID int64                    `json:"reservation_id"`
	ScheduleID    int64                    `json:"schedule_id"`
	Grade         domain.Grade             `json:"grade"`
	Quantity      int                      `json:"quantity"`
	Result        domain.LotteryResultType `json:"result"`
	Seats         []seatResponse           `json:"seats"`
}

func toLotteryResult(r domain.LotteryResult) lotteryResultResponse {
	seats := make([]seatResponse, 0, len(r.Seats))
	for _, s := range r.Seats {
		seats = append(seats, seatResponse{Zone: s.Zone, SeatNumber: s.SeatNumber, Status: string(s.Status)})
	}

	return lotteryResultResponse{
		ReservationID: r.ReservationID,
		ScheduleID:    r.ScheduleID,
		Grade:         r.Grade,
		Quantity:      r.Quantity,
		Result:        r.Result,
		Seats:         seats,
	}
}

func (h *TicketHandler) EnterLottery(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req enterLotteryRequest
	if err := bindValid(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	grade, err := domain.ParseGrade(req.Grade)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	entry, err := h.lottery.Enter(c.Request().Context(), services.EnterLotteryRequest{
		UserID:     currentUser(c),
		ScheduleID: scheduleID,
		Grade:      grade,
		Quantity:   req.Quantity,
		Token:      req.Token,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, lotteryEntryResponse{
		ReservationID:   entry.Reservation.ID,
		Grade:           entry.Reservation.Grade,
		Quantity:        entry.Reservation.Quantity,
		Status:          entry.Reservation.Status,
		PaymentDeadline: entry.PaymentDeadline,
	})
}

func (h *TicketHandler) LotteryResult(c echo.Context) error {
	reservationID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	result, err := h.lottery.Result(c.Request().Context(), reservationID, currentUser(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, toLotteryResult(*result))
}

func (h *TicketHandler) MyLotteryResults(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	results, err := h.lottery.MyResults(c.Request().Context(), scheduleID, currentUser(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	out := make([]lotteryResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, toLotteryResult(r))
	}

	return c.JSON(http.StatusOK, out)
}

type liveStatusResponse struct {
	ScheduleID int64 `json:"schedule_id"`
	Open       bool  `json:"open"`
	Remaining  int64 `json:"remaining"`
}

func (h *TicketHandler) LiveStatus(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	ctx := c.Request().Context()

	open, err := h.live.IsOpen(ctx, scheduleID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	remaining, err := h.pool.RemainingTotal(ctx, scheduleID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, liveStatusResponse{ScheduleID: scheduleID, Open: open, Remaining: remaining})
}

func (h *TicketHandler) AvailableSeats(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	zone := c.Param("zone")

	seats, err := h.live.AvailableSeats(c.Request().Context(), scheduleID, zone)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"zone": zone, "seats": seats})
}

type selectSeatRequest struct {
	Zone       string `json:"zone" validate:"required"`
	SeatNumber string `json:"seat_number" validate:"required"`
	Token      string `json:"token"`
}

type selectSeatResponse struct {
	ReservationID   int64        `json:"reservation_id"`
	Zone            string       `json:"zone"`
	SeatNumber      string       `json:"seat_number"`
	Grade           domain.Grade `json:"grade"`
	Quantity        int          `json:"quantity"`
	HoldExpiresAt   time.Time    `json:"hold_expires_at"`
	PaymentDeadline time.Time    `json:"payment_deadline"`
}

func (h *TicketHandler) SelectSeat(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req selectSeatRequest
	if err := bindValid(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	res, err := h.live.SelectSeat(c.Request().Context(), services.SelectSeatRequest{
		UserID:     currentUser(c),
		ScheduleID: scheduleID,
		Zone:       req.Zone,
		SeatNumber: req.SeatNumber,
		Token:      req.Token,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, selectSeatResponse{
		ReservationID:   res.ReservationID,
		Zone:            res.Zone,
		SeatNumber:      res.SeatNumber,
		Grade:           res.Grade,
		Quantity:        res.Quantity,
		HoldExpiresAt:   res.HoldExpiresAt,
		PaymentDeadline: res.PaymentDeadline,
	})
}

func (h *TicketHandler) ReleaseSeat(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	err = h.live.ReleaseSeat(c.Request().Context(), currentUser(c), scheduleID, c.Param("zone"), c.Param("seat"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *TicketHandler) HoldRemaining(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	secs, err := h.live.HoldRemaining(c.Request().Context(), scheduleID, c.Param("zone"), c.Param("seat"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"remaining_seconds": secs})
}
