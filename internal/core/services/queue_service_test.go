package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueService_EnterAndAdmit(t *testing.T) {
	h := newHarness(t, withQueueConfig(func(c *services.QueueConfig) {
		c.BatchSize = 2
		c.AdmitPerMinute = 1
	}))
	ctx := context.Background()

	for u := int64(1); u <= 3; u++ {
		entry, err := h.queue.Enter(ctx, scheduleID, u)
		require.NoError(t, err)
		assert.Equal(t, domain.QueueWaiting, entry.State)
		assert.Equal(t, u, entry.Position)
		h.clock.Advance(time.Millisecond)
	}

	entry, err := h.queue.Enter(ctx, scheduleID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), entry.Position, "re-entry keeps the original position")
	assert.Equal(t, int64(1), entry.EstimatedWaitMinutes)

	admitted, err := h.admission.AdmitTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, admitted)

	status, err := h.queue.Status(ctx, scheduleID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueReady, status.State)
	assert.NotEmpty(t, status.Token)

	again, err := h.queue.Enter(ctx, scheduleID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueReady, again.State)
	assert.Equal(t, status.Token, again.Token)

	status, err = h.queue.Status(ctx, scheduleID, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueWaiting, status.State)
	assert.Equal(t, int64(1), status.Position)

	status, err = h.queue.Status(ctx, scheduleID, 99)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueNotInQueue, status.State)
}

func TestQueueService_Full(t *testing.T) {
	h := newHarness(t, withQueueConfig(func(c *services.QueueConfig) { c.MaxQueueSize = 2 }))
	ctx := context.Background()

	_, err := h.queue.Enter(ctx, scheduleID, 1)
	require.NoError(t, err)
	_, err = h.queue.Enter(ctx, scheduleID, 2)
	require.NoError(t, err)

	_, err = h.queue.Enter(ctx, scheduleID, 3)
	assert.ErrorIs(t, err, domain.ErrQueueFull)
}

func TestQueueService_ClosedSchedule(t *testing.T) {
	h := newHarness(t)
	h.clock.Set(ticketOpen.Add(3 * time.Hour))

	_, err := h.queue.Enter(context.Background(), scheduleID, 1)
	assert.ErrorIs(t, err, domain.ErrTicketClosed)

	_, err = h.queue.Enter(context.Background(), 42, 1)
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
}

func TestQueueService_HeartbeatAndLeave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.queue.Heartbeat(ctx, scheduleID, 5), domain.ErrNotInQueue)

	_, err := h.queue.Enter(ctx, scheduleID, 5)
	require.NoError(t, err)
	require.NoError(t, h.queue.Heartbeat(ctx, scheduleID, 5))

	require.NoError(t, h.queue.Leave(ctx, scheduleID, 5))

	status, err := h.queue.Status(ctx, scheduleID, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueNotInQueue, status.State)
	assert.ErrorIs(t, h.queue.Heartbeat(ctx, scheduleID, 5), domain.ErrNotInQueue)
}

func TestQueueService_HeartbeatKeepsShopperActive(t *testing.T) {
	h := newHarness(t, withQueueConfig(func(c *services.QueueConfig) { c.MaxActiveUsers = 1 }))
	ctx := context.Background()

	for u := int64(1); u <= 2; u++ {
		_, err := h.queue.Enter(ctx, scheduleID, u)
		require.NoError(t, err)
		h.clock.Advance(time.Millisecond)
	}

	admitted, err := h.admission.AdmitTick(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, admitted)

	status, err := h.queue.Status(ctx, scheduleID, 1)
	require.NoError(t, err)
	require.Equal(t, domain.QueueReady, status.State)

	// the selection spends the token; the user is still shopping
	_, err = h.live.SelectSeat(ctx, services.SelectSeatRequest{
		UserID:     1,
		ScheduleID: scheduleID,
		Zone:       "VIP-A",
		SeatNumber: "V01",
		Token:      status.Token,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		h.clock.Advance(20 * time.Second)
		h.mr.FastForward(20 * time.Second)
		require.NoError(t, h.queue.Heartbeat(ctx, scheduleID, 1))
	}

	h.clock.Advance(5 * time.Second)
	admitted, err = h.admission.AdmitTick(ctx)
	require.NoError(t, err)
	assert.Zero(t, admitted, "a shopper who keeps sending heartbeats holds the only active slot")

	status, err = h.queue.Status(ctx, scheduleID, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueWaiting, status.State)

	// once the heartbeats stop the slot is reclaimed
	h.clock.Advance(time.Minute)
	admitted, err = h.admission.AdmitTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, admitted)
	assert.ErrorIs(t, h.queue.Heartbeat(ctx, scheduleID, 1), domain.ErrNotInQueue)
}

func TestAdmissionScheduler_CleanupDropsSilentUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.queue.Enter(ctx, scheduleID, 1)
	require.NoError(t, err)
	_, err = h.queue.Enter(ctx, scheduleID, 2)
	require.NoError(t, err)

	h.mr.FastForward(20 * time.Second)
	require.NoError(t, h.queue.Heartbeat(ctx, scheduleID, 2))
	h.mr.FastForward(20 * time.Second)

	removed, err := h.admission.CleanupTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	status, err := h.queue.Status(ctx, scheduleID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Position)
}

func TestAdmissionScheduler_SkipsWhenLocked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.queue.Enter(ctx, scheduleID, 1)
	require.NoError(t, err)

	require.NoError(t, h.rdb.Set(ctx, "lock:scheduler:batch-entry", "other-instance", time.Minute).Err())

	admitted, err := h.admission.AdmitTick(ctx)
	require.NoError(t, err)
	assert.Zero(t, admitted)

	status, err := h.queue.Status(ctx, scheduleID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueWaiting, status.State)
}
