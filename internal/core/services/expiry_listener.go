package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
)

const (
	expiryBacklog  = 1024
	expiryRetryMin = time.Second
	expiryRetryMax = 30 * time.Second
)

// ExpiryListener compensates reservations whose fast-store timers ran out.
// The source may deliver an event twice, so every handler re-reads state.
type ExpiryListener struct {
	source      ports.ExpirySource
	resSeats    ports.ReservationSeatRepository
	compensator *Compensator
	workers     int
	logger      *slog.Logger
}

func NewExpiryListener(source ports.ExpirySource, resSeats ports.ReservationSeatRepository, compensator *Compensator, workers int, logger *slog.Logger) *ExpiryListener {
	if workers < 1 {
		workers = 1
	}

	return &ExpiryListener{
		source:      source,
		resSeats:    resSeats,
		compensator: compensator,
		workers:     workers,
		logger:      logger,
	}
}

func (l *ExpiryListener) Run(ctx context.Context) error {
	events := make(chan ports.ExpiryEvent, expiryBacklog)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)

		l.listen(ctx, func(ctx context.Context, ev ports.ExpiryEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		return nil
	})

	for range l.workers {
		g.Go(func() error {
			for ev := range events {
				l.Handle(ctx, ev)
			}
			return nil
		})
	}

	return g.Wait()
}

// listen keeps the subscription alive until ctx is done, backing off
// between attempts when the source drops or fails to subscribe.
func (l *ExpiryListener) listen(ctx context.Context, handle func(context.Context, ports.ExpiryEvent)) {
	backoff := expiryRetryMin
	for {
		started := time.Now()
		err := l.source.Listen(ctx, handle)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("subscription closed")
		}
		if time.Since(started) > expiryRetryMax {
			backoff = expiryRetryMin
		}

		l.logger.Warn("expiry listener disconnected", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, expiryRetryMax)
	}
}

func (l *ExpiryListener) Handle(ctx context.Context, ev ports.ExpiryEvent) {
	var err error

	switch ev.Kind {
	case ports.ExpiredPaymentTimer:
		_, err = l.OnPaymentTimedOut(ctx, ev.ReservationID)
	case ports.ExpiredHold:
		_, err = l.OnHoldExpired(ctx, ev.ScheduleID, ev.Zone, ev.SeatNumber)
	default:
		return
	}

	if err != nil {
		l.logger.Error("expiry compensation failed", "key", ev.Key, "error", err)
	}
}

func (l *ExpiryListener) OnPaymentTimedOut(ctx context.Context, reservationID int64) (bool, error) {
	return l.compensator.CancelPending(ctx, reservationID, "payment_timeout")
}

func (l *ExpiryListener) OnHoldExpired(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error) {
	rs, err := l.resSeats.FindPendingBySeat(ctx, scheduleID, zone, seatNumber)
	if errors.Is(err, domain.ErrReservationNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return l.compensator.ReleaseSeat(ctx, *rs, "hold_expired")
}
