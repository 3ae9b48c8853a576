// Package lock provides the per-(business, date) mutual-exclusion scope
// used to serialize concurrent booking submissions.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotAcquired = errors.New("booking lock not acquired")

// Locker guards the critical section between re-checking availability and
// inserting an appointment. Read-only availability queries never take it.
type Locker interface {
	WithDateLock(ctx context.Context, businessID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error
}

func lockKey(businessID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("lock:bizdate:%s:%s", businessID, date.Format("2006-01-02"))
}

type redisDateLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker backed by a per-(business, date) Redis
// key: SetNX with a random token and a Lua compare-and-delete release.
// Acquisition retries briefly so contending bookings queue up instead of
// failing instantly; a contender that never gets the lock before the TTL
// window elapses receives ErrNotAcquired.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisDateLocker{client: client, ttl: ttl}
}

const acquireRetryDelay = 25 * time.Millisecond

func (l *redisDateLocker) WithDateLock(ctx context.Context, businessID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := lockKey(businessID, date)
	token := uuid.NewString()

	deadline := time.Now().Add(l.ttl)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire booking lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(acquireRetryDelay):
		}
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisDateLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}

type localDateLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker returns an in-process locker for tests and single-node
// deployments. Contenders block on a per-key mutex rather than retrying.
func NewLocalLocker() Locker {
	return &localDateLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *localDateLocker) WithDateLock(ctx context.Context, businessID uuid.UUID, date time.Time, fn func(ctx context.Context) error) error {
	key := lockKey(businessID, date)

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
