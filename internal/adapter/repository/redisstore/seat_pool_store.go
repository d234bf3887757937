package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type SeatPoolStore struct {
	rdb *redis.Client
}

func NewSeatPoolStore(rdb *redis.Client) *SeatPoolStore {
	return &SeatPoolStore{rdb: rdb}
}

// Seed replaces the zone's pool with seatNumbers.
func (s *SeatPoolStore) Seed(ctx context.Context, scheduleID int64, zone string, seatNumbers []string) error {
	key := poolKey(scheduleID, zone)

	members := make([]any, 0, len(seatNumbers))
	for _, n := range seatNumbers {
		members = append(members, n)
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(members) > 0 {
			pipe.SAdd(ctx, key, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed pool %s: %w", key, err)
	}

	return nil
}

// Take is the only arbiter of who gets a seat: SREM succeeds for one caller.
func (s *SeatPoolStore) Take(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error) {
	n, err := s.rdb.SRem(ctx, poolKey(scheduleID, zone), seatNumber).Result()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (s *SeatPoolStore) Put(ctx context.Context, scheduleID int64, zone, seatNumber string) (bool, error) {
	n, err := s.rdb.SAdd(ctx, poolKey(scheduleID, zone), seatNumber).Result()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (s *SeatPoolStore) Members(ctx context.Context, scheduleID int64, zone string) ([]string, error) {
	return s.rdb.SMembers(ctx, poolKey(scheduleID, zone)).Result()
}

func (s *SeatPoolStore) Counts(ctx context.Context, scheduleID int64, zones []string) (map[string]int64, error) {
	cmds := make(map[string]*redis.IntCmd, len(zones))

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, zone := range zones {
			cmds[zone] = pipe.SCard(ctx, poolKey(scheduleID, zone))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count pools for schedule %d: %w", scheduleID, err)
	}

	counts := make(map[string]int64, len(zones))
	for zone, cmd := range cmds {
		counts[zone] = cmd.Val()
	}

	return counts, nil
}
