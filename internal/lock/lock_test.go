package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnitos/turnitos-backend/internal/lock"
)

func testDate(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", "2026-08-24")
	require.NoError(t, err)
	return d
}

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := lock.NewLocalLocker()
	bizID := uuid.New()
	date := testDate(t)

	const workers = 100
	counter := 0
	inside := false

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithDateLock(context.Background(), bizID, date, func(ctx context.Context) error {
				if inside {
					t.Error("critical section entered twice")
				}
				inside = true
				counter++
				inside = false
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestLocalLockerIndependentKeys(t *testing.T) {
	locker := lock.NewLocalLocker()
	bizID := uuid.New()
	date := testDate(t)

	// A different date is a different lock; taking it while the first is
	// held must not deadlock.
	err := locker.WithDateLock(context.Background(), bizID, date, func(ctx context.Context) error {
		return locker.WithDateLock(ctx, bizID, date.AddDate(0, 0, 1), func(ctx context.Context) error {
			return nil
		})
	})
	assert.NoError(t, err)

	err = locker.WithDateLock(context.Background(), bizID, date, func(ctx context.Context) error {
		return locker.WithDateLock(ctx, uuid.New(), date, func(ctx context.Context) error {
			return nil
		})
	})
	assert.NoError(t, err)
}

func TestLocalLockerCancelledContext(t *testing.T) {
	locker := lock.NewLocalLocker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := locker.WithDateLock(ctx, uuid.New(), testDate(t), func(ctx context.Context) error {
		t.Error("fn must not run with a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func newRedisLocker(t *testing.T, ttl time.Duration) (lock.Locker, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.NewRedisLocker(client, ttl), client
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	locker, client := newRedisLocker(t, time.Second)
	bizID := uuid.New()
	date := testDate(t)

	ran := false
	err := locker.WithDateLock(context.Background(), bizID, date, func(ctx context.Context) error {
		ran = true
		keys, err := client.Keys(ctx, "lock:bizdate:*").Result()
		require.NoError(t, err)
		assert.Len(t, keys, 1)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// Released on return: an immediate reacquire succeeds.
	err = locker.WithDateLock(context.Background(), bizID, date, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	keys, err := client.Keys(context.Background(), "lock:bizdate:*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisLockerContention(t *testing.T) {
	locker, _ := newRedisLocker(t, 150*time.Millisecond)
	bizID := uuid.New()
	date := testDate(t)

	holderIn := make(chan struct{})
	holderOut := make(chan struct{})
	go func() {
		_ = locker.WithDateLock(context.Background(), bizID, date, func(ctx context.Context) error {
			close(holderIn)
			<-holderOut
			return nil
		})
	}()

	<-holderIn
	defer close(holderOut)

	// The contender retries until the TTL window elapses, then gives up.
	err := locker.WithDateLock(context.Background(), bizID, date, func(ctx context.Context) error {
		t.Error("contender must not enter while the lock is held")
		return nil
	})
	assert.ErrorIs(t, err, lock.ErrNotAcquired)
}

func TestRedisLockerDistinctKeysDoNotBlock(t *testing.T) {
	locker, _ := newRedisLocker(t, time.Second)
	bizID := uuid.New()
	date := testDate(t)

	err := locker.WithDateLock(context.Background(), bizID, date, func(ctx context.Context) error {
		return locker.WithDateLock(ctx, bizID, date.AddDate(0, 0, 1), func(ctx context.Context) error {
			return nil
		})
	})
	assert.NoError(t, err)
}
