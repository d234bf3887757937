package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTrackScheduler_ClosesAfterQueueDrains(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.queue.Enter(ctx, scheduleID, 1)
	require.NoError(t, err)

	h.clock.Set(ticketOpen.Add(31 * time.Minute))
	report, err := h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.LiveClosed, "waiting users keep the live track open")

	require.NoError(t, h.queue.Leave(ctx, scheduleID, 1))

	report, err = h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.LiveClosed)

	h.clock.Advance(9 * time.Minute)
	report, err = h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.LiveClosed)

	h.clock.Advance(time.Minute)
	report, err = h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{scheduleID}, report.LiveClosed)

	closed, err := h.state.IsLiveClosed(ctx, scheduleID)
	require.NoError(t, err)
	assert.True(t, closed)

	schedules, err := h.queueStore.ActiveSchedules(ctx)
	require.NoError(t, err)
	assert.NotContains(t, schedules, scheduleID)

	report, err = h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.LiveClosed, "closing happens once")
}

func TestTrackScheduler_EmptyQueueEarlyDoesNotClose(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.clock.Set(ticketOpen.Add(time.Minute))
	_, err := h.track.Tick(ctx)
	require.NoError(t, err)

	h.clock.Set(ticketOpen.Add(20 * time.Minute))
	report, err := h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.LiveClosed, "minimum open duration not reached")

	h.clock.Set(ticketOpen.Add(30 * time.Minute))
	report, err = h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{scheduleID}, report.LiveClosed)
}

func TestTrackScheduler_ClosesAtLiveDuration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.queue.Enter(ctx, scheduleID, 1)
	require.NoError(t, err)

	h.clock.Set(ticketOpen.Add(59 * time.Minute))
	report, err := h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.LiveClosed)

	h.clock.Set(ticketOpen.Add(60 * time.Minute))
	report, err = h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{scheduleID}, report.LiveClosed)
}

func TestTrackScheduler_SkipsWhenLocked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.rdb.Set(ctx, "lock:scheduler:track-lifecycle", "other", time.Minute).Err())

	h.clock.Set(ticketOpen.Add(2 * time.Hour))
	report, err := h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.LiveClosed)

	closed, err := h.state.IsLiveClosed(ctx, scheduleID)
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestTrackScheduler_ReconcilesPaidPaymentWithoutCallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reservationID := h.selectLive(t, 1, "VIP-A", "V01")
	init, err := h.payments.Initiate(ctx, reservationID, 1)
	require.NoError(t, err)

	paid := &ports.GatewayPayment{ImpUID: "imp_late", MerchantUID: init.MerchantUID, Amount: init.Amount, Status: "paid"}

	// younger than the reconcile threshold: the gateway is not asked
	h.clock.Advance(4 * time.Minute)
	report, err := h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.PaymentsReconciled)

	h.clock.Advance(2 * time.Minute)
	h.gateway.On("FindByMerchantUID", mock.Anything, init.MerchantUID).Return(paid, nil).Once()
	h.gateway.On("Verify", mock.Anything, "imp_late").Return(paid, nil).Once()

	report, err = h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PaymentsReconciled)

	p := h.db.payment(init.PaymentID)
	assert.Equal(t, domain.PaymentCompleted, p.Status)
	assert.Equal(t, "imp_late", p.ImpUID)
	assert.Equal(t, domain.ReservationAssigned, h.db.reservation(reservationID).Status)
	assert.Equal(t, domain.SeatSold, h.db.seatStatus(scheduleID, "VIP-A", "V01"))

	report, err = h.track.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.PaymentsReconciled, "a settled payment is not listed again")
}

func TestTrackScheduler_ReconcileFailedPaymentCancelsReservation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reservationID := h.selectLive(t, 1, "VIP-A", "V01")
	init, err := h.payments.Initiate(ctx, reservationID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(9), h.stock(t, domain.GradeVIP))

	h.clock.Advance(6 * time.Minute)
	h.gateway.On("FindByMerchantUID", mock.Anything, init.MerchantUID).Return(&ports.GatewayPayment{
		MerchantUID: init.MerchantUID, Amount: init.Amount, Status: "failed",
	}, nil).Once()

	n, err := h.track.ReconcilePayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, domain.PaymentFailed, h.db.payment(init.PaymentID).Status)
	assert.Equal(t, domain.ReservationCancelled, h.db.reservation(reservationID).Status)
	assert.True(t, h.inPool(t, "VIP-A", "V01"))
	assert.Equal(t, int64(10), h.stock(t, domain.GradeVIP))
}

func TestTrackScheduler_ReconcileWaitsForUnknownOrders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.selectLive(t, 1, "VIP-A", "V01")
	second := h.selectLive(t, 2, "VIP-A", "V02")
	initFirst, err := h.payments.Initiate(ctx, first, 1)
	require.NoError(t, err)
	initSecond, err := h.payments.Initiate(ctx, second, 2)
	require.NoError(t, err)

	h.clock.Advance(6 * time.Minute)
	h.gateway.On("FindByMerchantUID", mock.Anything, initFirst.MerchantUID).Return(nil, domain.ErrPaymentNotFound).Once()
	h.gateway.On("FindByMerchantUID", mock.Anything, initSecond.MerchantUID).Return(nil, errors.New("gateway timeout")).Once()

	n, err := h.track.ReconcilePayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, id := range []int64{initFirst.PaymentID, initSecond.PaymentID} {
		assert.Equal(t, domain.PaymentPending, h.db.payment(id).Status)
	}
	assert.Equal(t, domain.ReservationPending, h.db.reservation(first).Status)
	assert.Equal(t, domain.ReservationPending, h.db.reservation(second).Status)
}
