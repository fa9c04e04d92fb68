package distlock

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "card:r1", time.Minute)
	b := NewRedisLock(client, "card:r1", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("lock:card:r1"))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	// b does not own the key, so its release is a no-op.
	require.NoError(t, b.Release(ctx))
	assert.True(t, mr.Exists("lock:card:r1"))

	require.NoError(t, a.Release(ctx))
	assert.False(t, mr.Exists("lock:card:r1"))
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "card:r2", time.Second)
	ok, _ := a.Acquire(ctx)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	b := NewRedisLock(client, "card:r2", time.Second)
	ok, err := b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLock_Exclusive(t *testing.T) {
	ctx := context.Background()
	a := NewLocalLock("local:x")
	b := NewLocalLock("local:x")
	other := NewLocalLock("local:y")

	ok, _ := a.Acquire(ctx)
	require.True(t, ok)
	ok, _ = b.Acquire(ctx)
	assert.False(t, ok)
	ok, _ = other.Acquire(ctx)
	assert.True(t, ok, "different keys are independent")

	require.NoError(t, b.Release(ctx))
	ok, _ = NewLocalLock("local:x").Acquire(ctx)
	assert.False(t, ok, "release by a non-owner must not free the key")

	require.NoError(t, a.Release(ctx))
	require.NoError(t, other.Release(ctx))
	ok, _ = b.Acquire(ctx)
	assert.True(t, ok)
	require.NoError(t, b.Release(ctx))
}

func TestPGAdvisoryLock_PinsConnection(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	lock := NewPGAdvisoryLock(db, "card:r1")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(lock.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(lock.lockID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lock.Release(context.Background()))
	assert.Nil(t, lock.conn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("pg_try_advisory_lock").WillReturnError(errors.New("conn reset"))

	lock := NewPGAdvisoryLock(db, "card:r1")
	ok, err := lock.Acquire(context.Background())
	assert.False(t, ok)
	assert.ErrorContains(t, err, "conn reset")
	assert.Nil(t, lock.conn)
}

func TestPGAdvisoryLock_LostAttemptReturnsConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("pg_try_advisory_lock").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	lock := NewPGAdvisoryLock(db, "card:r1")
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, lock.conn)
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestLocker_PGTimeoutReturnsConnections(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 50; i++ {
		mock.ExpectQuery("pg_try_advisory_lock").
			WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))
	}

	locker := NewLocker(nil, db, time.Second, 80*time.Millisecond)
	_, err = locker.Lock(context.Background(), "card:x")
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Equal(t, 0, db.Stats().InUse)
	assert.Empty(t, locker.slots, "a failed attempt must give its slot back")
}

func TestLocker_PGLeavesConnectionForStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(3)

	granted := func() {
		mock.ExpectQuery("pg_try_advisory_lock").
			WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	}
	granted()
	granted()

	locker := NewLocker(nil, db, time.Second, 60*time.Millisecond)
	require.Equal(t, 2, cap(locker.slots))

	releaseA, err := locker.Lock(context.Background(), "card:a")
	require.NoError(t, err)
	releaseB, err := locker.Lock(context.Background(), "card:b")
	require.NoError(t, err)
	assert.Equal(t, 2, db.Stats().InUse)

	_, err = locker.Lock(context.Background(), "card:c")
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Equal(t, 2, db.Stats().InUse, "a waiter must not take the last connection")

	mock.ExpectExec("pg_advisory_unlock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("pg_advisory_unlock").WillReturnResult(sqlmock.NewResult(0, 0))
	releaseA()
	releaseB()
	assert.Equal(t, 0, db.Stats().InUse)
	assert.Empty(t, locker.slots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_SerializesSameKey(t *testing.T) {
	_, client := newRedis(t)
	locker := NewLocker(client, nil, time.Minute, 5*time.Second)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), "card:hot")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLocker_TimesOutWhenHeld(t *testing.T) {
	locker := NewLocker(nil, nil, time.Minute, 60*time.Millisecond)

	release, err := locker.Lock(context.Background(), "card:busy")
	require.NoError(t, err)
	defer release()

	_, err = locker.Lock(context.Background(), "card:busy")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestLocker_ReleaseAfterCancelledContext(t *testing.T) {
	locker := NewLocker(nil, nil, time.Minute, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	release, err := locker.Lock(ctx, "card:cancel")
	require.NoError(t, err)
	cancel()
	release()

	release2, err := locker.Lock(context.Background(), "card:cancel")
	require.NoError(t, err)
	release2()
}
