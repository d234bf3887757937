package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/services"
)

type QueueHandler struct {
	svc    *services.QueueService
	logger *slog.Logger
}

func NewQueueHandler(svc *services.QueueService, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

type queueResponse struct {
	ScheduleID           int64             `json:"schedule_id"`
	Position             int64             `json:"position"`
	EstimatedWaitMinutes int64             `json:"estimated_wait_minutes"`
	State                domain.QueueState `json:"state"`
	Token                string            `json:"token,omitempty"`
}

func (h *QueueHandler) Enter(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	entry, err := h.svc.Enter(c.Request().Context(), scheduleID, currentUser(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, queueResponse{
		ScheduleID:           scheduleID,
		Position:             entry.Position,
		EstimatedWaitMinutes: entry.EstimatedWaitMinutes,
		State:                entry.State,
		Token:                entry.Token,
	})
}

func (h *QueueHandler) Status(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	st, err := h.svc.Status(c.Request().Context(), scheduleID, currentUser(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, queueResponse{
		ScheduleID: scheduleID,
		Position:   st.Position,
		State:      st.State,
		Token:      st.Token,
	})
}

func (h *QueueHandler) Heartbeat(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.svc.Heartbeat(c.Request().Context(), scheduleID, currentUser(c)); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *QueueHandler) Leave(c echo.Context) error {
	scheduleID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if err := h.svc.Leave(c.Request().Context(), scheduleID, currentUser(c)); err != nil {
		return respondError(c, h.logger, err)
	}

	return c.NoContent(http.StatusNoContent)
}
