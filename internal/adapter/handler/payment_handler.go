package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
	cancel   *services.ReservationCancelService
	logger   *slog.Logger
}

func NewPaymentHandler(payments *services.PaymentService, cancel *services.ReservationCancelService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, cancel: cancel, logger: logger}
}

type paymentInitResponse struct {
	PaymentID      int64     `json:"payment_id"`
	ReservationID  int64     `json:"reservation_id"`
	MerchantUID    string    `json:"merchant_uid"`
	Amount         int64     `json:"amount"`
	Deadline       time.Time `json:"deadline"`
	TimeoutSeconds int64     `json:"timeout_seconds"`
}

func (h *PaymentHandler) Initiate(c echo.Context) error {
	reservationID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	init, err := h.payments.Initiate(c.Request().Context(), reservationID, currentUser(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, paymentInitResponse{
		PaymentID:      init.PaymentID,
		ReservationID:  init.ReservationID,
		MerchantUID:    init.MerchantUID,
		Amount:         init.Amount,
		Deadline:       init.Deadline,
		TimeoutSeconds: int64(time.Until(init.Deadline).Seconds()),
	})
}

type completePaymentRequest struct {
	ImpUID      string `json:"imp_uid" validate:"required"`
	MerchantUID string `json:"merchant_uid" validate:"required"`
}

type paymentResponse struct {
	PaymentID     int64                `json:"payment_id"`
	ReservationID int64                `json:"reservation_id"`
	MerchantUID   string               `json:"merchant_uid"`
	Amount        int64                `json:"amount"`
	Status        domain.PaymentStatus `json:"status"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
}

// Complete is the gateway webhook. It is not behind JWT auth; the payment is
// trusted only after the gateway confirms it.
func (h *PaymentHandler) Complete(c echo.Context) error {
	var req completePaymentRequest
	if err := bindValid(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	p, err := h.payments.Complete(c.Request().Context(), req.MerchantUID, req.ImpUID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, paymentResponse{
		PaymentID:     p.ID,
		ReservationID: p.ReservationID,
		MerchantUID:   p.MerchantUID,
		Amount:        p.Amount,
		Status:        p.Status,
		PaidAt:        p.PaidAt,
	})
}

func (h *PaymentHandler) Timer(c echo.Context) error {
	reservationID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	remaining, err := h.payments.Remaining(c.Request().Context(), reservationID, currentUser(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	remaining = max(remaining, 0)

	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id":    reservationID,
		"remaining_seconds": int64(remaining.Seconds()),
		"expired":           remaining == 0,
	})
}

func (h *PaymentHandler) CancellationWindow(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	w, err := h.cancel.Window(c.Request().Context(), scheduleID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"starts_at": w.StartsAt, "ends_at": w.EndsAt})
}

func (h *PaymentHandler) CancelReservation(c echo.Context) error {
	reservationID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	res, err := h.cancel.Cancel(c.Request().Context(), reservationID, currentUser(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"reservation_id": res.ID, "status": res.Status})
}
