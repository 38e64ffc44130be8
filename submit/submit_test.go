package submit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) *RedisLocker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts := DefaultLockOptions()
	opts.RetryDelay = 10 * time.Millisecond
	opts.Tries = 500
	return NewRedisLocker(client, opts, nil)
}

// exclusive runs n workers on one source and returns the peak concurrency.
func exclusive(t *testing.T, q *Queue, n int) int32 {
	t.Helper()
	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Do(context.Background(), "GSOURCE", func(context.Context) error {
				cur := inFlight.Add(1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	return peak.Load()
}

func TestLocalQueueSerializesSource(t *testing.T) {
	locker := NewLocalLocker()
	q := NewQueue(locker, "", nil)
	assert.Equal(t, int32(1), exclusive(t, q, 20))
	assert.Zero(t, locker.held())
}

func TestLocalLockerIndependentKeys(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	releaseA, err := locker.Lock(ctx, "a")
	require.NoError(t, err)
	releaseB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, locker.held())

	releaseA()
	releaseA() // idempotent
	releaseB()
	assert.Zero(t, locker.held())
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, locker.held())
}

func TestQueuePropagatesError(t *testing.T) {
	q := NewQueue(NewLocalLocker(), "test:", nil)
	boom := errors.New("boom")
	err := q.Do(context.Background(), "GSOURCE", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	// The lock was released despite the error.
	ran := false
	require.NoError(t, q.Do(context.Background(), "GSOURCE", func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestRedisQueueSerializesSource(t *testing.T) {
	q := NewQueue(newRedisLocker(t), "mint:test:", nil)
	assert.Equal(t, int32(1), exclusive(t, q, 8))
}

func TestRedisLockerContention(t *testing.T) {
	locker := newRedisLocker(t)
	locker.opts.Tries = 2

	release, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)

	_, err = locker.Lock(context.Background(), "busy")
	assert.Error(t, err)

	release()
	release2, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)
	release2()
}
