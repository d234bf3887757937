package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Queue   *QueueHandler
	Ticket  *TicketHandler
	Payment *PaymentHandler
}

// NewRouter mounts every route. Extra middleware runs on the authenticated
// /v1 group after JWT verification.
func NewRouter(h Handlers, jwtSecret string, v1Middleware ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.Use(echomw.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/v1/payments/complete", h.Payment.Complete)

	v1 := e.Group("/v1")
	v1.Use(JWTAuth(jwtSecret))
	v1.Use(v1Middleware...)

	v1.POST("/schedules/:id/queue", h.Queue.Enter)
	v1.GET("/schedules/:id/queue", h.Queue.Status)
	v1.POST("/schedules/:id/queue/heartbeat", h.Queue.Heartbeat)
	v1.DELETE("/schedules/:id/queue", h.Queue.Leave)

	v1.POST("/schedules/:id/lottery", h.Ticket.EnterLottery)
	v1.GET("/schedules/:id/lottery/results", h.Ticket.MyLotteryResults)
	v1.GET("/lottery/:id", h.Ticket.LotteryResult)

	v1.GET("/schedules/:id/live", h.Ticket.LiveStatus)
	v1.GET("/schedules/:id/zones/:zone/seats", h.Ticket.AvailableSeats)
	v1.POST("/schedules/:id/seats", h.Ticket.SelectSeat)
	v1.GET("/schedules/:id/zones/:zone/seats/:seat/hold", h.Ticket.HoldRemaining)
	v1.DELETE("/schedules/:id/zones/:zone/seats/:seat", h.Ticket.ReleaseSeat)

	v1.POST("/reservations/:id/payment", h.Payment.Initiate)
	v1.GET("/reservations/:id/payment/timer", h.Payment.Timer)
	v1.POST("/reservations/:id/cancel", h.Payment.CancelReservation)
	v1.GET("/schedules/:id/cancellation-window", h.Payment.CancellationWindow)

	return e
}
