package redisstore_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/srgjo27/fair_ticket/internal/adapter/repository/redisstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore_SaveGetDelete(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	store := redisstore.NewTokenStore(db)
	ctx := context.Background()

	mockRedis.ExpectSet("token:42:7", "abc", 300*time.Second).SetVal("OK")
	mockRedis.ExpectGet("token:42:7").SetVal("abc")
	mockRedis.ExpectDel("token:42:7").SetVal(1)
	mockRedis.ExpectGet("token:42:7").RedisNil()

	require.NoError(t, store.Save(ctx, 42, 7, "abc", 300*time.Second))

	token, err := store.Get(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	deleted, err := store.Delete(ctx, 42, 7)
	require.NoError(t, err)
	assert.True(t, deleted)

	token, err = store.Get(ctx, 42, 7)
	require.NoError(t, err)
	assert.Empty(t, token)

	if err := mockRedis.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestTokenStore_ConsumeOnlyOnce(t *testing.T) {
	_, rdb := newMiniRedis(t)
	store := redisstore.NewTokenStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 1, 2, "tok", time.Minute))

	ok, err := store.ConsumeIfMatch(ctx, 1, 2, "other")
	require.NoError(t, err)
	assert.False(t, ok, "a different value must not consume the token")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.ConsumeIfMatch(ctx, 1, 2, "tok")
			if assert.NoError(t, err) && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestTokenStore_Expires(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	store := redisstore.NewTokenStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 1, 2, "tok", 300*time.Second))
	mr.FastForward(301 * time.Second)

	ok, err := store.ConsumeIfMatch(ctx, 1, 2, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}
