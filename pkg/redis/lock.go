package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RunLock is the mutual exclusion the ledger assumes: log and reconcile
// are single-writer operations, and concurrent pipeline invocations must
// be serialized. Acquisition is SET NX with a TTL; release compares the
// owner token before deleting so an expired holder cannot release a lock
// it no longer owns.
type RunLock struct {
	client  *Client
	key     string
	ttl     time.Duration
	limiter *rate.Limiter
}

// release script: delete only if we still hold the lock.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// NewRunLock creates a run lock on the given key.
func NewRunLock(client *Client, key string, ttl time.Duration) *RunLock {
	return &RunLock{
		client: client,
		key:    key,
		ttl:    ttl,
		// One acquisition attempt per second keeps contention polite.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Acquire blocks until the lock is held or ctx expires. It returns a
// release function. With Redis disabled it is a no-op: the caller is
// expected to be serialized by the scheduler instead.
func (l *RunLock) Acquire(ctx context.Context) (func(), error) {
	if !l.client.Enabled() {
		return func() {}, nil
	}

	token := uuid.NewString()
	rdb := l.client.Redis()

	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("run lock wait: %w", err)
		}

		ok, err := rdb.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("run lock acquire: %w", err)
		}
		if ok {
			break
		}
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = releaseScript.Run(ctx, rdb, []string{l.key}, token).Result()
	}

	return release, nil
}
