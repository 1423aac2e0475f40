package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	ok       bool
	err      error
	keys     []string
	released int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, false, l.err
	}
	return func(context.Context) error { l.released++; return nil }, l.ok, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecurring_RunOnce(t *testing.T) {
	tests := []struct {
		name         string
		locker       *fakeLocker
		taskErr      error
		wantRan      bool
		wantErr      bool
		wantReleased int
	}{
		{name: "no locker", wantRan: true},
		{name: "lock acquired", locker: &fakeLocker{ok: true}, wantRan: true, wantReleased: 1},
		{name: "lock held elsewhere", locker: &fakeLocker{ok: false}, wantRan: false},
		{name: "lock error", locker: &fakeLocker{err: errors.New("redis down")}, wantErr: true},
		{name: "task error still releases", locker: &fakeLocker{ok: true}, taskErr: errors.New("boom"), wantRan: true, wantErr: true, wantReleased: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			task := func(ctx context.Context) (int, error) {
				calls++
				return 3, tt.taskErr
			}
			var locker Locker
			if tt.locker != nil {
				locker = tt.locker
			}
			r := NewRecurring("archival", time.Hour, task, locker, testLogger())

			ran, n, err := r.RunOnce(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantRan, ran)
			if tt.wantRan {
				assert.Equal(t, 1, calls)
				assert.Equal(t, 3, n)
			} else {
				assert.Equal(t, 0, calls)
			}
			if tt.locker != nil {
				assert.Equal(t, []string{"archival"}, tt.locker.keys)
				assert.Equal(t, tt.wantReleased, tt.locker.released)
			}
		})
	}
}

func TestRecurring_StartRunsImmediatelyAndOnTicks(t *testing.T) {
	var calls atomic.Int32
	runs := make(chan struct{}, 10)
	task := func(ctx context.Context) (int, error) {
		calls.Add(1)
		runs <- struct{}{}
		return 0, nil
	}
	r := NewRecurring("archival", time.Hour, task, nil, testLogger())
	ticks := make(chan time.Time)
	stopped := false
	r.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return ticks, func() { stopped = true }
	}

	require.NoError(t, r.Start(context.Background()))
	require.Error(t, r.Start(context.Background()))

	waitRun(t, runs)
	ticks <- time.Now()
	waitRun(t, runs)

	r.Stop()
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, stopped)

	// second Stop is a no-op
	r.Stop()
}

func TestRecurring_StopsOnContextCancel(t *testing.T) {
	r := NewRecurring("archival", time.Hour, func(ctx context.Context) (int, error) { return 0, nil }, nil, testLogger())
	r.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return make(chan time.Time), func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	cancel()

	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after cancel")
	}
}

func TestRecurring_InvalidInterval(t *testing.T) {
	r := NewRecurring("archival", 0, func(ctx context.Context) (int, error) { return 0, nil }, nil, testLogger())
	require.Error(t, r.Start(context.Background()))
}

func waitRun(t *testing.T, runs <-chan struct{}) {
	t.Helper()
	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}
