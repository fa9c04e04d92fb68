package distlock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for a single named lock.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// NewLock creates a lock using the best available backend.
// If redisClient is non-nil, uses Redis (preferred for cross-host locking).
// Otherwise falls back to PostgreSQL advisory locks, and to an in-process
// lock when neither is configured.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	if db != nil {
		return NewPGAdvisoryLock(db, key)
	}
	return NewLocalLock(key)
}

// =============================================================================
// PostgreSQL Advisory Lock (fallback when Redis is unavailable)
// =============================================================================
// Advisory locks are session-scoped, so a held lock pins one pooled
// connection until Release. An attempt that loses returns its connection.
// The lock is released automatically if that connection drops.

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock. Returns true if successful.
// Uses pg_try_advisory_lock which returns immediately (non-blocking).
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	if l.conn == nil {
		conn, err := l.db.Conn(ctx)
		if err != nil {
			return false, fmt.Errorf("advisory lock conn: %w", err)
		}
		l.conn = conn
	}
	var acquired bool
	if err := l.conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		l.closeConn()
		return false, fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	if !acquired {
		// Only a held lock keeps its session; waiters poll on fresh conns.
		l.closeConn()
	}
	return acquired, nil
}

// Release releases the advisory lock and returns its connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer l.closeConn()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

func (l *PGAdvisoryLock) closeConn() {
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
}

// =============================================================================
// In-process lock (single instance deployments, tests)
// =============================================================================

var localLocks = &keyedMutex{held: make(map[string]struct{})}

type keyedMutex struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func (k *keyedMutex) tryLock(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, busy := k.held[key]; busy {
		return false
	}
	k.held[key] = struct{}{}
	return true
}

func (k *keyedMutex) unlock(key string) {
	k.mu.Lock()
	delete(k.held, key)
	k.mu.Unlock()
}

// LocalLock implements DistLock within a single process.
type LocalLock struct {
	key   string
	owned bool
}

// NewLocalLock creates an in-process lock for key.
func NewLocalLock(key string) *LocalLock {
	return &LocalLock{key: key}
}

// Acquire tries to take the key. Never blocks.
func (l *LocalLock) Acquire(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.owned = localLocks.tryLock(l.key)
	return l.owned, nil
}

// Release frees the key if this instance holds it.
func (l *LocalLock) Release(ctx context.Context) error {
	if l.owned {
		localLocks.unlock(l.key)
		l.owned = false
	}
	return nil
}
