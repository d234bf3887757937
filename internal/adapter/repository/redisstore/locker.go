package redisstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker is a lease lock: SET NX PX to acquire, compare-and-delete to release.
// A holder that dies simply lets the lease run out.
type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

func (l *Locker) TryLock(ctx context.Context, name string, lease time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, lockKey(name), token, lease).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

func (l *Locker) Unlock(ctx context.Context, name, token string) error {
	return compareAndDeleteScript.Run(ctx, l.rdb, []string{lockKey(name)}, token).Err()
}
