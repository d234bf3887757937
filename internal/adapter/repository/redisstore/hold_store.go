package redisstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type HoldStore struct {
	rdb *redis.Client
}

func NewHoldStore(rdb *redis.Client) *HoldStore {
	return &HoldStore{rdb: rdb}
}

func (s *HoldStore) Acquire(ctx context.Context, scheduleID int64, zone, seatNumber string, userID int64, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, holdKey(scheduleID, zone, seatNumber), userID, ttl).Result()
}

func (s *HoldStore) Release(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error) {
	n, err := s.rdb.Del(ctx, holdKey(scheduleID, zone, seatNumber)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (s *HoldStore) ReleaseOwned(ctx context.Context, scheduleID int64, zone, seatNumber string, userID int64) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, s.rdb,
		[]string{holdKey(scheduleID, zone, seatNumber)},
		strconv.FormatInt(userID, 10),
	).Int64()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (s *HoldStore) Owner(ctx context.Context, scheduleID int64, zone, seatNumber string) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, holdKey(scheduleID, zone, seatNumber)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return v, true, nil
}

func (s *HoldStore) TTL(ctx context.Context, scheduleID int64, zone, seatNumber string) (time.Duration, error) {
	ttl, err := s.rdb.TTL(ctx, holdKey(scheduleID, zone, seatNumber)).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}

	return ttl, nil
}
