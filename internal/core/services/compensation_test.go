package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
	"github.com/srgjo27/fair_ticket/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiryListener_PaymentTimeoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reservationID := h.selectLive(t, 1, "VIP-A", "V01", "V02")
	pay, err := h.payments.Initiate(ctx, reservationID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(8), h.stock(t, domain.GradeVIP))

	h.mr.FastForward(6 * time.Minute)
	require.False(t, h.mr.Exists("payment-timer:1"))

	cancelled, err := h.listener.OnPaymentTimedOut(ctx, reservationID)
	require.NoError(t, err)
	assert.True(t, cancelled)

	assert.Equal(t, domain.ReservationCancelled, h.db.reservation(reservationID).Status)
	assert.True(t, h.inPool(t, "VIP-A", "V01"))
	assert.True(t, h.inPool(t, "VIP-A", "V02"))
	assert.Equal(t, domain.SeatAvailable, h.db.seatStatus(scheduleID, "VIP-A", "V01"))
	assert.Equal(t, int64(10), h.stock(t, domain.GradeVIP))

	stored, err := paymentRepo{h.db}.GetByMerchantUID(ctx, pay.MerchantUID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCancelled, stored.Status)

	for range 3 {
		h.listener.Handle(ctx, ports.ExpiryEvent{Kind: ports.ExpiredPaymentTimer, Key: "payment-timer:1", ReservationID: reservationID})
	}

	assert.Equal(t, int64(10), h.stock(t, domain.GradeVIP), "duplicate notifications change nothing")

	seats, err := h.pool.Available(ctx, scheduleID, "VIP-A")
	require.NoError(t, err)
	assert.Len(t, seats, 10)
}

func TestExpiryListener_IgnoresNonPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	paid := h.db.insertReservation(domain.Reservation{
		UserID: 5, ScheduleID: scheduleID, Grade: domain.GradeR, Quantity: 1,
		Track: domain.TrackLottery, Status: domain.ReservationPaidPendingSeat,
	})

	cancelled, err := h.listener.OnPaymentTimedOut(ctx, paid.ID)
	require.NoError(t, err)
	assert.False(t, cancelled)
	assert.Equal(t, domain.ReservationPaidPendingSeat, h.db.reservation(paid.ID).Status)

	cancelled, err = h.listener.OnPaymentTimedOut(ctx, 999)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestExpiryListener_LotteryTimeoutRestoresStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.clock.Set(ticketOpen.Add(-25 * time.Minute))

	entry, err := h.lottery.Enter(ctx, enterLottery(h, t, 4, domain.GradeR, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.stock(t, domain.GradeR))

	cancelled, err := h.listener.OnPaymentTimedOut(ctx, entry.Reservation.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.Equal(t, int64(4), h.stock(t, domain.GradeR))

	remaining, err := h.pool.RemainingForGrade(ctx, scheduleID, domain.GradeR)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining, "cancelled entries no longer count against the quota")
}

func TestExpiryListener_HoldExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reservationID := h.selectLive(t, 1, "VIP-A", "V01", "V02")

	released, err := h.listener.OnHoldExpired(ctx, scheduleID, "VIP-A", "V01")
	require.NoError(t, err)
	assert.True(t, released)
	assert.True(t, h.inPool(t, "VIP-A", "V01"))
	assert.Equal(t, 1, h.db.reservation(reservationID).Quantity)

	released, err = h.listener.OnHoldExpired(ctx, scheduleID, "VIP-A", "V01")
	require.NoError(t, err)
	assert.False(t, released, "second expiry for the same seat is a no-op")
	assert.Equal(t, 1, h.db.reservation(reservationID).Quantity)
	assert.Equal(t, int64(9), h.stock(t, domain.GradeVIP))
}

func TestTrackScheduler_ReleasesExpiredHolds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.selectLive(t, 1, "VIP-A", "V01")
	h.clock.Advance(5 * time.Minute)
	second := h.selectLive(t, 2, "VIP-A", "V02", "V03")

	h.clock.Advance(6 * time.Minute)

	released, err := h.track.ReleaseExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	assert.Equal(t, domain.ReservationCancelled, h.db.reservation(first).Status)
	assert.Equal(t, domain.ReservationPending, h.db.reservation(second).Status)
	assert.True(t, h.inPool(t, "VIP-A", "V01"))
	assert.False(t, h.inPool(t, "VIP-A", "V02"))

	h.clock.Advance(5 * time.Minute)

	released, err = h.track.ReleaseExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, released)
	assert.Equal(t, domain.ReservationCancelled, h.db.reservation(second).Status)

	released, err = h.track.ReleaseExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.Equal(t, int64(10), h.stock(t, domain.GradeVIP))
}

// flakySource fails its first subscription, then delivers events and blocks.
type flakySource struct {
	attempts atomic.Int32
	events   []ports.ExpiryEvent
}

func (s *flakySource) Listen(ctx context.Context, handle func(context.Context, ports.ExpiryEvent)) error {
	if s.attempts.Add(1) == 1 {
		return errors.New("psubscribe: connection refused")
	}

	for _, ev := range s.events {
		handle(ctx, ev)
	}
	<-ctx.Done()

	return nil
}

func TestExpiryListener_RunResubscribesAfterFailure(t *testing.T) {
	h := newHarness(t)
	reservationID := h.selectLive(t, 1, "VIP-A", "V01")

	source := &flakySource{events: []ports.ExpiryEvent{
		{Kind: ports.ExpiredPaymentTimer, Key: "payment-timer:1", ReservationID: reservationID},
	}}
	listener := services.NewExpiryListener(source, resSeatRepo{h.db}, h.comp, 2, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return h.db.reservation(reservationID).Status == domain.ReservationCancelled
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(2), source.attempts.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}
