package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	fail    bool
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.fail {
		return redis.NewIntResult(0, errors.New("connection refused"))
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(ctx context.Context, key string, d time.Duration) *redis.BoolCmd {
	f.expires[key] = d
	return redis.NewBoolResult(true, nil)
}

func TestRedisLimiter_Allow(t *testing.T) {
	fc := newFakeCounter()
	l := newRedisLimiter(fc, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, 7)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	// other users have their own counter
	ok, err = l.Allow(ctx, 8)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 24*time.Hour, fc.expires["issue_limit:7"])
}

func TestRedisLimiter_Error(t *testing.T) {
	fc := newFakeCounter()
	fc.fail = true
	_, err := newRedisLimiter(fc, 2).Allow(context.Background(), 1)
	assert.Error(t, err)
}

func TestRedisLimiter_ZeroLimitDisables(t *testing.T) {
	fc := newFakeCounter()
	fc.fail = true
	ok, err := newRedisLimiter(fc, 0).Allow(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
