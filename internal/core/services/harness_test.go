package services_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/fair_ticket/internal/adapter/repository/redisstore"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports/mocks"
	"github.com/srgjo27/fair_ticket/internal/core/services"
	"github.com/srgjo27/fair_ticket/internal/platform/clock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const scheduleID int64 = 1

var ticketOpen = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

type harness struct {
	db    *memDB
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	clock *clock.FakeClock

	queueStore *redisstore.QueueStore
	state      *redisstore.TrackStateStore
	timers     *redisstore.PaymentTimerStore

	gateway   *mocks.PaymentGateway
	publisher *mocks.EventPublisher

	tokens    *services.EntryTokenService
	queue     *services.QueueService
	admission *services.AdmissionScheduler
	pool      *services.SeatPoolService
	holds     *services.SeatHoldService
	comp      *services.Compensator
	live      *services.LiveTrackService
	lottery   *services.LotteryService
	payments  *services.PaymentService
	cancel    *services.ReservationCancelService
	track     *services.TrackLifecycleScheduler
	listener  *services.ExpiryListener
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	queue  services.QueueConfig
	policy domain.TrackPolicy
	seed   uint64
}

func withQueueConfig(f func(*services.QueueConfig)) harnessOption {
	return func(c *harnessConfig) { f(&c.queue) }
}

func withSeed(seed uint64) harnessOption {
	return func(c *harnessConfig) { c.seed = seed }
}

// newHarness wires every service against an in-memory durable store and a
// miniredis fast store. Schedule 1 opens at ticketOpen with ten VIP seats in
// zone VIP-A and four R seats in zone R-A; the clock starts one minute after
// ticket open.
func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := harnessConfig{queue: services.DefaultQueueConfig(), policy: domain.DefaultTrackPolicy(), seed: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	mr, rdb := newMiniRedis(t)
	logger := discardLogger()
	clk := clock.Fake(ticketOpen.Add(time.Minute))

	db := newMemDB()
	db.addSchedule(domain.Schedule{
		ID:              scheduleID,
		ConcertID:       1,
		StartTime:       ticketOpen.Add(24 * time.Hour),
		TicketOpenTime:  ticketOpen,
		TicketCloseTime: ticketOpen.Add(3 * time.Hour),
		Status:          domain.ScheduleOpen,
	})
	db.addSeats(scheduleID, "VIP-A", domain.GradeVIP, "V01", "V02", "V03", "V04", "V05", "V06", "V07", "V08", "V09", "V10")
	db.addSeats(scheduleID, "R-A", domain.GradeR, "R01", "R02", "R03", "R04")

	schedules := scheduleRepo{db}
	seats := seatRepo{db}
	reservations := reservationRepo{db}
	resSeats := resSeatRepo{db}
	paymentsRepo := paymentRepo{db}

	queueStore := redisstore.NewQueueStore(rdb)
	state := redisstore.NewTrackStateStore(rdb)
	timers := redisstore.NewPaymentTimerStore(rdb)
	locker := redisstore.NewLocker(rdb)

	gateway := mocks.NewPaymentGateway(t)
	publisher := mocks.NewEventPublisher(t)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	tokens := services.NewEntryTokenService(redisstore.NewTokenStore(rdb), cfg.queue.TokenTTL)
	pool := services.NewSeatPoolService(redisstore.NewSeatPoolStore(rdb), seats, reservations, state, logger)
	holds := services.NewSeatHoldService(redisstore.NewHoldStore(rdb), seats, cfg.policy.HoldDuration, logger)
	comp := services.NewCompensator(reservations, resSeats, paymentsRepo, pool, holds, state, timers, logger)

	live := services.NewLiveTrackService(services.LiveTrackDeps{
		Schedules:    schedules,
		Seats:        seats,
		Reservations: reservations,
		ResSeats:     resSeats,
		Pool:         pool,
		Holds:        holds,
		Tokens:       tokens,
		Compensator:  comp,
		State:        state,
		Timers:       timers,
	}, cfg.policy, clk, logger)

	lottery := services.NewLotteryService(services.LotteryDeps{
		Schedules:    schedules,
		Seats:        seats,
		Reservations: reservations,
		ResSeats:     resSeats,
		Pool:         pool,
		Tokens:       tokens,
		State:        state,
		Timers:       timers,
		Publisher:    publisher,
	}, cfg.policy, rand.New(rand.NewPCG(cfg.seed, cfg.seed+1)), clk, logger)

	payments := services.NewPaymentService(services.PaymentDeps{
		Schedules:    schedules,
		Reservations: reservations,
		Payments:     paymentsRepo,
		Gateway:      gateway,
		Publisher:    publisher,
		Timers:       timers,
		Lottery:      lottery,
		Live:         live,
	}, cfg.policy, clk, logger)

	cancel := services.NewReservationCancelService(services.CancelDeps{
		Schedules:    schedules,
		Reservations: reservations,
		ResSeats:     resSeats,
		Payments:     paymentsRepo,
		PaymentSvc:   payments,
		Pool:         pool,
		State:        state,
	}, cfg.policy, clk, logger)

	track := services.NewTrackLifecycleScheduler(services.TrackSchedulerDeps{
		Schedules:    schedules,
		Reservations: reservations,
		ResSeats:     resSeats,
		Queue:        queueStore,
		State:        state,
		Locker:       locker,
		Payments:     paymentsRepo,
		Lottery:      lottery,
		PaymentSvc:   payments,
		Compensator:  comp,
	}, cfg.policy, time.Minute, clk, logger)

	h := &harness{
		db:         db,
		mr:         mr,
		rdb:        rdb,
		clock:      clk,
		queueStore: queueStore,
		state:      state,
		timers:     timers,
		gateway:    gateway,
		publisher:  publisher,
		tokens:     tokens,
		queue:      services.NewQueueService(queueStore, schedules, tokens, cfg.queue, clk, logger),
		admission:  services.NewAdmissionScheduler(queueStore, tokens, locker, cfg.queue, clk, logger),
		pool:       pool,
		holds:      holds,
		comp:       comp,
		live:       live,
		lottery:    lottery,
		payments:   payments,
		cancel:     cancel,
		track:      track,
		listener:   services.NewExpiryListener(redisstore.NewExpirySource(rdb, logger), resSeats, comp, 2, logger),
	}

	seeded, err := pool.Initialize(context.Background(), scheduleID)
	require.NoError(t, err)
	require.Equal(t, 14, seeded)

	return h
}

func (h *harness) issueToken(t *testing.T, userID int64) string {
	t.Helper()

	token, err := h.tokens.Issue(context.Background(), userID, scheduleID)
	require.NoError(t, err)

	return token
}

func (h *harness) stock(t *testing.T, grade domain.Grade) int64 {
	t.Helper()

	n, err := h.rdb.Get(context.Background(), "stock:1:"+string(grade)).Int64()
	require.NoError(t, err)

	return n
}

func (h *harness) inPool(t *testing.T, zone, seat string) bool {
	t.Helper()

	ok, err := h.rdb.SIsMember(context.Background(), "seats:1:"+zone, seat).Result()
	require.NoError(t, err)

	return ok
}

// selectLive takes seats for a fresh user through the token path.
func (h *harness) selectLive(t *testing.T, userID int64, zone string, seats ...string) int64 {
	t.Helper()

	token := h.issueToken(t, userID)
	var reservationID int64
	for _, seat := range seats {
		res, err := h.live.SelectSeat(context.Background(), services.SelectSeatRequest{
			UserID:     userID,
			ScheduleID: scheduleID,
			Zone:       zone,
			SeatNumber: seat,
			Token:      token,
		})
		require.NoError(t, err)
		reservationID = res.ReservationID
	}

	return reservationID
}
