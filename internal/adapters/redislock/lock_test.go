package redislock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	setKey   string
	setValue interface{}
	setTTL   time.Duration
	setOK    bool
	setErr   error

	evalKeys []string
	evalArgs []interface{}
}

func (f *fakeClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.setKey, f.setValue, f.setTTL = key, value, expiration
	return redis.NewBoolResult(f.setOK, f.setErr)
}

func (f *fakeClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.evalKeys, f.evalArgs = keys, args
	return redis.NewCmdResult(int64(1), nil)
}

func TestLocker_TryLock(t *testing.T) {
	ctx := context.Background()

	t.Run("acquired lock releases with its own token", func(t *testing.T) {
		fc := &fakeClient{setOK: true}
		l := &Locker{client: fc, prefix: "stepout:lock:"}

		release, ok, err := l.TryLock(ctx, "archival", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "stepout:lock:archival", fc.setKey)
		assert.Equal(t, time.Minute, fc.setTTL)

		require.NoError(t, release(ctx))
		assert.Equal(t, []string{"stepout:lock:archival"}, fc.evalKeys)
		require.Len(t, fc.evalArgs, 1)
		assert.Equal(t, fc.setValue, fc.evalArgs[0])
	})

	t.Run("held elsewhere", func(t *testing.T) {
		fc := &fakeClient{setOK: false}
		l := &Locker{client: fc}
		release, ok, err := l.TryLock(ctx, "archival", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, release(ctx))
		assert.Nil(t, fc.evalKeys)
	})

	t.Run("redis error", func(t *testing.T) {
		l := &Locker{client: &fakeClient{setErr: errors.New("conn refused")}}
		_, ok, err := l.TryLock(ctx, "archival", time.Minute)
		require.Error(t, err)
		assert.False(t, ok)
	})
}
