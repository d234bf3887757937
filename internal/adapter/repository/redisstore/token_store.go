package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type TokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

func (s *TokenStore) Save(ctx context.Context, userID, scheduleID int64, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, tokenKey(userID, scheduleID), token, ttl).Err()
}

func (s *TokenStore) Get(ctx context.Context, userID, scheduleID int64) (string, error) {
	token, err := s.rdb.Get(ctx, tokenKey(userID, scheduleID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	return token, err
}

func (s *TokenStore) ConsumeIfMatch(ctx context.Context, userID, scheduleID int64, token string) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, s.rdb, []string{tokenKey(userID, scheduleID)}, token).Int64()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (s *TokenStore) Delete(ctx context.Context, userID, scheduleID int64) (bool, error) {
	n, err := s.rdb.Del(ctx, tokenKey(userID, scheduleID)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
