package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/cardscan/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock could not be acquired within the
// Locker's wait budget.
var ErrLockTimeout = errors.New("timed out waiting for lock")

const releaseTimeout = 3 * time.Second

// Locker hands out scoped locks keyed by string, polling until the lock is
// free or the wait budget runs out.
type Locker struct {
	redisClient *redis.Client
	db          *sql.DB
	ttl         time.Duration
	wait        time.Duration
	retry       time.Duration
	// slots caps how many advisory locks may pin a pooled connection at
	// once, leaving at least one connection free for the store itself.
	// nil for the Redis and in-process backends.
	slots chan struct{}
}

// NewLocker creates a Locker. Backend selection follows NewLock.
// ttl bounds how long a crashed holder can keep a Redis lock; wait bounds
// how long Lock polls before giving up.
func NewLocker(redisClient *redis.Client, db *sql.DB, ttl, wait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	l := &Locker{
		redisClient: redisClient,
		db:          db,
		ttl:         ttl,
		wait:        wait,
		retry:       25 * time.Millisecond,
	}
	if redisClient == nil && db != nil {
		if maxOpen := db.Stats().MaxOpenConnections; maxOpen > 0 {
			l.slots = make(chan struct{}, max(maxOpen-1, 1))
		}
	}
	return l
}

// Lock blocks until key is held and returns the function that releases it.
// The release function is safe to call exactly once and does not depend on
// ctx, so a cancelled request still frees its lock.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	if l.slots != nil {
		select {
		case l.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
	}

	lock := NewLock(l.redisClient, l.db, key, l.ttl)
	held := false
	defer func() {
		if held {
			return
		}
		// Give back anything the failed attempt pinned.
		if p, ok := lock.(*PGAdvisoryLock); ok {
			p.closeConn()
		}
		l.freeSlot()
	}()

	for {
		ok, err := lock.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, err
		}
		if ok {
			held = true
			return func() {
				rctx, rcancel := context.WithTimeout(context.Background(), releaseTimeout)
				defer rcancel()
				if err := lock.Release(rctx); err != nil {
					logger.Warn("lock release failed", "key", key, "error", err)
				}
				l.freeSlot()
			}, nil
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-timer.C:
		}
	}
}

func (l *Locker) freeSlot() {
	if l.slots != nil {
		<-l.slots
	}
}
