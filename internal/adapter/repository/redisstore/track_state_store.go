package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

const (
	liveClosedTTL      = 48 * time.Hour
	queueZeroSinceTTL  = 48 * time.Hour
	lotteryAssignedTTL = 24 * time.Hour
)

type TrackStateStore struct {
	rdb *redis.Client
}

func NewTrackStateStore(rdb *redis.Client) *TrackStateStore {
	return &TrackStateStore{rdb: rdb}
}

func (s *TrackStateStore) MarkLiveClosed(ctx context.Context, scheduleID int64, at time.Time) (bool, error) {
	return s.rdb.SetNX(ctx, liveClosedKey(scheduleID), at.UnixMilli(), liveClosedTTL).Result()
}

func (s *TrackStateStore) IsLiveClosed(ctx context.Context, scheduleID int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, liveClosedKey(scheduleID)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (s *TrackStateStore) QueueEmptySince(ctx context.Context, scheduleID int64, now time.Time) (time.Time, error) {
	key := queueZeroSinceKey(scheduleID)

	if err := s.rdb.SetNX(ctx, key, now.UnixMilli(), queueZeroSinceTTL).Err(); err != nil {
		return time.Time{}, err
	}

	ms, err := s.rdb.Get(ctx, key).Int64()
	if err != nil {
		return time.Time{}, err
	}

	return time.UnixMilli(ms), nil
}

func (s *TrackStateStore) ClearQueueEmptySince(ctx context.Context, scheduleID int64) error {
	return s.rdb.Del(ctx, queueZeroSinceKey(scheduleID)).Err()
}

func (s *TrackStateStore) ClaimLotteryAssignment(ctx context.Context, scheduleID int64) (bool, error) {
	return s.rdb.SetNX(ctx, lotteryAssignedKey(scheduleID), "1", lotteryAssignedTTL).Result()
}

func (s *TrackStateStore) ReleaseLotteryAssignment(ctx context.Context, scheduleID int64) error {
	return s.rdb.Del(ctx, lotteryAssignedKey(scheduleID)).Err()
}

func (s *TrackStateStore) MarkLotteryPaid(ctx context.Context, scheduleID, userID int64) error {
	return s.rdb.SAdd(ctx, lotteryPaidKey(scheduleID), strconv.FormatInt(userID, 10)).Err()
}

func (s *TrackStateStore) IsLotteryPaid(ctx context.Context, scheduleID, userID int64) (bool, error) {
	return s.rdb.SIsMember(ctx, lotteryPaidKey(scheduleID), strconv.FormatInt(userID, 10)).Result()
}

func (s *TrackStateStore) SeedStock(ctx context.Context, scheduleID int64, grade domain.Grade, count int64) error {
	return s.rdb.Set(ctx, stockKey(scheduleID, grade), count, 0).Err()
}

// ReserveStock decrements the grade's counter by n unless fewer than n
// units are left, in which case the counter is untouched and ok is false.
func (s *TrackStateStore) ReserveStock(ctx context.Context, scheduleID int64, grade domain.Grade, n int64) (bool, error) {
	left, err := reserveStockScript.Run(ctx, s.rdb, []string{stockKey(scheduleID, grade)}, n).Int64()
	if err != nil {
		return false, fmt.Errorf("reserve stock %s: %w", grade, err)
	}

	return left >= 0, nil
}

func (s *TrackStateStore) AdjustStock(ctx context.Context, scheduleID int64, grade domain.Grade, delta int64) (int64, error) {
	return s.rdb.IncrBy(ctx, stockKey(scheduleID, grade), delta).Result()
}
