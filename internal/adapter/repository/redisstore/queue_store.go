package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
)

type QueueStore struct {
	rdb *redis.Client
}

func NewQueueStore(rdb *redis.Client) *QueueStore {
	return &QueueStore{rdb: rdb}
}

func (s *QueueStore) Enter(ctx context.Context, scheduleID, userID int64, at time.Time, maxSize int) (bool, error) {
	res, err := enterQueueScript.Run(ctx, s.rdb,
		[]string{queueKey(scheduleID), activeSchedulesKey},
		userID, at.UnixMilli(), maxSize, scheduleID,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("enter queue %d: %w", scheduleID, err)
	}

	switch res {
	case 0:
		return false, domain.ErrQueueFull
	case 2:
		return false, nil
	}

	return true, nil
}

func (s *QueueStore) Rank(ctx context.Context, scheduleID, userID int64) (int64, bool, error) {
	rank, err := s.rdb.ZRank(ctx, queueKey(scheduleID), strconv.FormatInt(userID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return rank, true, nil
}

func (s *QueueStore) Size(ctx context.Context, scheduleID int64) (int64, error) {
	return s.rdb.ZCard(ctx, queueKey(scheduleID)).Result()
}

func (s *QueueStore) Remove(ctx context.Context, scheduleID, userID int64) error {
	member := strconv.FormatInt(userID, 10)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, queueKey(scheduleID), member)
		pipe.ZRem(ctx, activeKey(scheduleID), member)
		pipe.Del(ctx, heartbeatKey(scheduleID, userID))
		return nil
	})

	return err
}

// Touch refreshes the waiting heartbeat and, for admitted users, the
// active-set score the admission script uses for eviction.
func (s *QueueStore) Touch(ctx context.Context, scheduleID, userID int64, at time.Time, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, heartbeatKey(scheduleID, userID), at.UnixMilli(), ttl)
		pipe.ZAddXX(ctx, activeKey(scheduleID), redis.Z{
			Score:  float64(at.UnixMilli()),
			Member: strconv.FormatInt(userID, 10),
		})
		return nil
	})

	return err
}

func (s *QueueStore) IsActive(ctx context.Context, scheduleID, userID int64) (bool, error) {
	err := s.rdb.ZScore(ctx, activeKey(scheduleID), strconv.FormatInt(userID, 10)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (s *QueueStore) Admit(ctx context.Context, scheduleID int64, batch, maxActive int, now time.Time, activeTimeout time.Duration) (ports.AdmitResult, error) {
	cutoff := now.Add(-activeTimeout).UnixMilli()

	raw, err := admitScript.Run(ctx, s.rdb,
		[]string{queueKey(scheduleID), activeKey(scheduleID)},
		now.UnixMilli(), "("+strconv.FormatInt(cutoff, 10), batch, maxActive,
	).Slice()
	if err != nil {
		return ports.AdmitResult{}, fmt.Errorf("admit schedule %d: %w", scheduleID, err)
	}

	if len(raw) < 2 {
		return ports.AdmitResult{}, fmt.Errorf("admit schedule %d: unexpected reply %v", scheduleID, raw)
	}

	result := ports.AdmitResult{
		ActiveCount: toInt64(raw[0]),
		QueueSize:   toInt64(raw[1]),
	}

	members := make([]string, 0, len(raw)-2)
	for _, v := range raw[2:] {
		members = append(members, fmt.Sprint(v))
	}

	result.Admitted, err = parseIDs(members)
	if err != nil {
		return result, err
	}

	return result, nil
}

func (s *QueueStore) RemoveStale(ctx context.Context, scheduleID int64) ([]int64, error) {
	removed, err := removeStaleScript.Run(ctx, s.rdb,
		[]string{queueKey(scheduleID)},
		heartbeatPrefix(scheduleID),
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("remove stale %d: %w", scheduleID, err)
	}

	return parseIDs(removed)
}

func (s *QueueStore) ActiveSchedules(ctx context.Context) ([]int64, error) {
	members, err := s.rdb.SMembers(ctx, activeSchedulesKey).Result()
	if err != nil {
		return nil, err
	}

	return parseIDs(members)
}

func (s *QueueStore) Retire(ctx context.Context, scheduleID int64) error {
	return s.rdb.SRem(ctx, activeSchedulesKey, strconv.FormatInt(scheduleID, 10)).Err()
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}
