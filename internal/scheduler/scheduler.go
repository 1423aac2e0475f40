// Package scheduler runs periodic background jobs such as the chat archival sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Locker guards a job so only one replica runs it per tick.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Task is the unit of work; it reports how many items it touched.
type Task func(ctx context.Context) (int, error)

// Recurring runs a Task on a fixed interval.
type Recurring struct {
	name     string
	interval time.Duration
	task     Task
	locker   Locker
	logger   *slog.Logger

	// newTicker is swapped in tests.
	newTicker func(time.Duration) (<-chan time.Time, func())

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRecurring returns a job named name. locker may be nil for single-replica deployments.
func NewRecurring(name string, interval time.Duration, task Task, locker Locker, logger *slog.Logger) *Recurring {
	return &Recurring{
		name:     name,
		interval: interval,
		task:     task,
		locker:   locker,
		logger:   logger,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// RunOnce executes the task, taking the lock first when a Locker is set.
// ran is false when another replica held the lock.
func (r *Recurring) RunOnce(ctx context.Context) (ran bool, n int, err error) {
	if r.locker != nil {
		release, ok, err := r.locker.TryLock(ctx, r.name, r.interval)
		if err != nil {
			return false, 0, fmt.Errorf("lock %s: %w", r.name, err)
		}
		if !ok {
			r.logger.DebugContext(ctx, "job skipped, lock held elsewhere", "job", r.name)
			return false, 0, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("job lock release failed", "job", r.name, "err", err)
			}
		}()
	}
	start := time.Now()
	n, err = r.task(ctx)
	if err != nil {
		return true, n, fmt.Errorf("%s: %w", r.name, err)
	}
	r.logger.InfoContext(ctx, "job finished", "job", r.name, "affected", n, "duration_ms", time.Since(start).Milliseconds())
	return true, n, nil
}

// Start runs the task once immediately and then every interval until Stop
// or until ctx is canceled.
func (r *Recurring) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("scheduler: already running")
	}
	if r.interval <= 0 {
		return fmt.Errorf("scheduler: invalid interval %s", r.interval)
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.running = true
	go r.loop(ctx)
	r.logger.Info("job scheduled", "job", r.name, "interval", r.interval.String())
	return nil
}

func (r *Recurring) loop(ctx context.Context) {
	defer close(r.done)
	ticks, stop := r.newTicker(r.interval)
	defer stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			r.tick(ctx)
		}
	}
}

func (r *Recurring) tick(ctx context.Context) {
	if _, _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("job failed", "job", r.name, "err", err)
	}
}

// Stop cancels the loop and waits for an in-flight run to return.
func (r *Recurring) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	done := r.done
	r.mu.Unlock()
	<-done
	r.logger.Info("job stopped", "job", r.name)
}
