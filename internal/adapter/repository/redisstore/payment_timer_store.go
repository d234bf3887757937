package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type PaymentTimerStore struct {
	rdb *redis.Client
}

func NewPaymentTimerStore(rdb *redis.Client) *PaymentTimerStore {
	return &PaymentTimerStore{rdb: rdb}
}

func (s *PaymentTimerStore) Start(ctx context.Context, reservationID int64, ttl time.Duration) error {
	return s.rdb.Set(ctx, paymentTimerKey(reservationID), time.Now().Add(ttl).UnixMilli(), ttl).Err()
}

func (s *PaymentTimerStore) Cancel(ctx context.Context, reservationID int64) (bool, error) {
	n, err := s.rdb.Del(ctx, paymentTimerKey(reservationID)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (s *PaymentTimerStore) Remaining(ctx context.Context, reservationID int64) (time.Duration, error) {
	ttl, err := s.rdb.TTL(ctx, paymentTimerKey(reservationID)).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}

	return ttl, nil
}
