package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/srgjo27/fair_ticket/internal/adapter/gateway"
	"github.com/srgjo27/fair_ticket/internal/adapter/handler"
	"github.com/srgjo27/fair_ticket/internal/adapter/messaging/rabbitmq"
	"github.com/srgjo27/fair_ticket/internal/adapter/repository/postgres"
	"github.com/srgjo27/fair_ticket/internal/adapter/repository/redisstore"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/services"
	"github.com/srgjo27/fair_ticket/internal/platform/cache"
	"github.com/srgjo27/fair_ticket/internal/platform/clock"
	"github.com/srgjo27/fair_ticket/internal/platform/config"
	"github.com/srgjo27/fair_ticket/internal/platform/database"
)

// app holds every long-lived component built from one Config.
type app struct {
	db        *sql.DB
	rdb       *redis.Client
	publisher *rabbitmq.Publisher

	pool      *services.SeatPoolService
	admission *services.AdmissionScheduler
	track     *services.TrackLifecycleScheduler
	listener  *services.ExpiryListener
	handlers  handler.Handlers

	// middleware runs on every /v1 route after authentication.
	middleware []echo.MiddlewareFunc
}

func databaseConfig(c config.DatabaseConfig) database.Config {
	return database.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		DBName:          c.Name,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

func queueConfig(c config.QueueConfig) services.QueueConfig {
	return services.QueueConfig{
		BatchSize:         c.BatchSize,
		MaxActiveUsers:    c.MaxActiveUsers,
		MaxQueueSize:      c.MaxQueueSize,
		AdmitPerMinute:    c.AdmitPerMinute,
		HeartbeatTTL:      c.HeartbeatTTL,
		TokenTTL:          c.TokenTTL,
		ActiveTimeout:     c.ActiveTimeout,
		AdmissionInterval: c.AdmissionInterval,
		CleanupInterval:   c.CleanupInterval,
	}
}

func trackPolicy(c config.TrackConfig) domain.TrackPolicy {
	return domain.TrackPolicy{
		LotteryOpenBefore:         c.LotteryOpenBefore,
		LotteryEntryCloseBefore:   c.LotteryEntryCloseBefore,
		LotteryPaymentCloseBefore: c.LotteryPaymentCloseBefore,
		LotteryAssignAfter:        c.LotteryAssignAfter,
		LiveDuration:              c.LiveDuration,
		QueueEmptyDwell:           c.QueueEmptyDwell,
		MinOpenDuration:           c.MinOpenDuration,
		HoldDuration:              c.HoldDuration,
		PaymentDeadline:           c.PaymentDeadline,
		PaymentReconcileAfter:     c.PaymentReconcileAfter,
		LotteryMaxPerUser:         c.LotteryMaxPerUser,
		LiveMaxPerUser:            c.LiveMaxPerUser,
		CancelStartAfter:          c.CancelStartAfter,
		CancelWindow:              c.CancelWindow,
	}
}

func apiMiddleware(c config.LimitConfig, rdb redis.Scripter, logger *slog.Logger) []echo.MiddlewareFunc {
	if !c.Enabled {
		return nil
	}

	return []echo.MiddlewareFunc{
		handler.RateLimit(rdb, handler.RateLimitConfig{Requests: c.Requests, Window: c.Window}, logger),
	}
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, *redis.Client, error) {
	db, err := database.NewPostgresDB(ctx, databaseConfig(cfg.Database), logger)
	if err != nil {
		return nil, nil, err
	}

	rdb, err := cache.NewRedisClient(ctx, cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, rdb, nil
}

func newSeatPool(db *sql.DB, rdb *redis.Client, logger *slog.Logger) *services.SeatPoolService {
	return services.NewSeatPoolService(
		redisstore.NewSeatPoolStore(rdb),
		postgres.NewSeatRepository(db),
		postgres.NewReservationRepository(db),
		redisstore.NewTrackStateStore(rdb),
		logger,
	)
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	db, rdb, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
	if err != nil {
		_ = rdb.Close()
		_ = db.Close()
		return nil, err
	}

	clk := clock.Real()
	qcfg := queueConfig(cfg.Queue)
	policy := trackPolicy(cfg.Track)

	schedules := postgres.NewScheduleRepository(db)
	seats := postgres.NewSeatRepository(db)
	reservations := postgres.NewReservationRepository(db)
	resSeats := postgres.NewReservationSeatRepository(db)
	payments := postgres.NewPaymentRepository(db)

	queueStore := redisstore.NewQueueStore(rdb)
	state := redisstore.NewTrackStateStore(rdb)
	timers := redisstore.NewPaymentTimerStore(rdb)
	locker := redisstore.NewLocker(rdb)

	pg := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		APIKey:    cfg.Gateway.APIKey,
		APISecret: cfg.Gateway.APISecret,
		Timeout:   cfg.Gateway.Timeout,
	}, logger)

	tokens := services.NewEntryTokenService(redisstore.NewTokenStore(rdb), qcfg.TokenTTL)
	pool := services.NewSeatPoolService(redisstore.NewSeatPoolStore(rdb), seats, reservations, state, logger)
	holds := services.NewSeatHoldService(redisstore.NewHoldStore(rdb), seats, policy.HoldDuration, logger)
	comp := services.NewCompensator(reservations, resSeats, payments, pool, holds, state, timers, logger)

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
	}, policy, clk, logger)

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
	}, policy, nil, clk, logger)

	paymentSvc := services.NewPaymentService(services.PaymentDeps{
		Schedules:    schedules,
		Reservations: reservations,
		Payments:     payments,
		Gateway:      pg,
		Publisher:    publisher,
		Timers:       timers,
		Lottery:      lottery,
		Live:         live,
	}, policy, clk, logger)

	cancel := services.NewReservationCancelService(services.CancelDeps{
		Schedules:    schedules,
		Reservations: reservations,
		ResSeats:     resSeats,
		Payments:     payments,
		PaymentSvc:   paymentSvc,
		Pool:         pool,
		State:        state,
	}, policy, clk, logger)

	track := services.NewTrackLifecycleScheduler(services.TrackSchedulerDeps{
		Schedules:    schedules,
		Reservations: reservations,
		ResSeats:     resSeats,
		Queue:        queueStore,
		State:        state,
		Locker:       locker,
		Payments:     payments,
		Lottery:      lottery,
		PaymentSvc:   paymentSvc,
		Compensator:  comp,
	}, policy, cfg.Track.ScanInterval, clk, logger)

	queue := services.NewQueueService(queueStore, schedules, tokens, qcfg, clk, logger)

	return &app{
		db:        db,
		rdb:       rdb,
		publisher: publisher,
		pool:      pool,
		admission: services.NewAdmissionScheduler(queueStore, tokens, locker, qcfg, clk, logger),
		track:     track,
		listener:  services.NewExpiryListener(redisstore.NewExpirySource(rdb, logger), resSeats, comp, cfg.Track.ExpiryWorkers, logger),
		handlers: handler.Handlers{
			Queue:   handler.NewQueueHandler(queue, logger),
			Ticket:  handler.NewTicketHandler(lottery, live, pool, logger),
			Payment: handler.NewPaymentHandler(paymentSvc, cancel, logger),
		},
		middleware: apiMiddleware(cfg.Limit, rdb, logger),
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.publisher.Close(), a.rdb.Close(), a.db.Close())
}
