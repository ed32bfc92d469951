package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a distributed lock could not be acquired before the wait expired.
var ErrLockTimeout = errors.New("locking: timed out waiting for lock")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions tunes the distributed lock.
type RedisOptions struct {
	Prefix       string
	TTL          time.Duration
	RetryDelay   time.Duration
	MaxWait      time.Duration
	ReleaseAfter time.Duration
}

func (o RedisOptions) withDefaults() RedisOptions {
	if o.Prefix == "" {
		o.Prefix = "flexspace:lock:"
	}
	if o.TTL <= 0 {
		o.TTL = 10 * time.Second
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 25 * time.Millisecond
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 5 * time.Second
	}
	if o.ReleaseAfter <= 0 {
		o.ReleaseAfter = time.Second
	}
	return o
}

// RedisLocker implements a single-instance Redis lock: SET NX PX to acquire,
// compare-and-delete to release so an expired holder cannot free someone else's lock.
type RedisLocker struct {
	client redis.Cmdable
	opts   RedisOptions
	logger *slog.Logger
}

// NewRedisLocker wraps a go-redis client.
func NewRedisLocker(client redis.Cmdable, opts RedisOptions, logger *slog.Logger) *RedisLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{client: client, opts: opts.withDefaults(), logger: logger}
}

// Lock polls until the key is acquired, ctx is done, or MaxWait elapses.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	name := l.opts.Prefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.opts.MaxWait)
	defer cancel()

	ticker := time.NewTicker(l.opts.RetryDelay)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, name, token, l.opts.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if ok {
			return l.unlocker(name, token), nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, name)
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlocker(name, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.opts.ReleaseAfter)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{name}, token).Err(); err != nil {
			l.logger.WarnContext(ctx, "failed to release distributed lock", "lock", name, "error", err)
		}
	}
}
