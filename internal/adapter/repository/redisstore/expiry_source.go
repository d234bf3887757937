package redisstore

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
)

const expiredChannelPattern = "__keyevent@*__:expired"

// ExpirySource turns keyspace expiry notifications into ports.ExpiryEvent.
// Notifications are at-most-once on the wire, so handlers must tolerate both
// duplicates and gaps.
type ExpirySource struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewExpirySource(rdb *redis.Client, logger *slog.Logger) *ExpirySource {
	return &ExpirySource{rdb: rdb, logger: logger}
}

func (s *ExpirySource) Listen(ctx context.Context, handle func(context.Context, ports.ExpiryEvent)) error {
	// Managed Redis often forbids CONFIG; the server may already be configured.
	if err := s.rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		s.logger.Warn("could not enable keyspace notifications", "error", err)
	}

	pubsub := s.rdb.PSubscribe(ctx, expiredChannelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	s.logger.Info("expiry listener subscribed", "pattern", expiredChannelPattern)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry listener stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, known := ParseExpiredKey(msg.Payload)
			if !known {
				continue
			}
			handle(ctx, event)
		}
	}
}
