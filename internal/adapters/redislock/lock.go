// Package redislock provides a best-effort distributed lock on Redis so that
// only one replica runs a scheduled job per tick.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Locker acquires keys with SET NX PX.
type Locker struct {
	client client
	prefix string
}

// New returns a Locker whose keys are namespaced under prefix.
func New(rdb *redis.Client, prefix string) *Locker {
	return &Locker{client: rdb, prefix: prefix}
}

// Connect parses a redis:// URL and returns a Locker plus the client for shutdown.
func Connect(url, prefix string) (*Locker, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	return New(rdb, prefix), rdb, nil
}

// TryLock attempts to take key for ttl. ok is false when another holder has it.
// release is safe to call when ok is false.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error) {
	full := l.prefix + key
	token := uuid.NewString()
	ok, err = l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", full, err)
	}
	if !ok {
		return func(context.Context) error { return nil }, false, nil
	}
	release = func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{full}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", full, err)
		}
		return nil
	}
	return release, true, nil
}
