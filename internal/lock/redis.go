package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotAcquired means the named lock stayed held by someone else for the
// whole tries budget. Callers reschedule, they do not fail the operation.
var ErrNotAcquired = errors.New("named lock not acquired within budget")

// releaseScript deletes the key only when it still holds our token, so an
// expired lease can never release a lock re-acquired by another worker.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Options struct {
	TTL     time.Duration
	Tries   int
	Backoff time.Duration
}

// EventLocker hands out time-boxed named locks keyed by event id, backed by
// redis SET NX PX.
type EventLocker struct {
	client  redis.UniversalClient
	opts    Options
	tokenFn func() (string, error)
}

func NewEventLocker(client redis.UniversalClient, opts Options) *EventLocker {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Tries <= 0 {
		opts.Tries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}

	return &EventLocker{
		client:  client,
		opts:    opts,
		tokenFn: newToken,
	}
}

// ReleaseFunc frees an acquired lock. It must be called on every exit path;
// failures are logged, never propagated, and the TTL is the backstop for a
// lease that could not be released.
type ReleaseFunc func(ctx context.Context)

func eventKey(eventID uint) string {
	return fmt.Sprintf("event-alloc-%d", eventID)
}

// Acquire takes the per-event allocation lock, retrying with backoff up to the
// tries budget.
func (l *EventLocker) Acquire(ctx context.Context, eventID uint) (ReleaseFunc, error) {
	key := eventKey(eventID)
	token, err := l.tokenFn()
	if err != nil {
		return nil, fmt.Errorf("lock.newToken -> %w", err)
	}

	for attempt := 1; ; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis.SetNX -> %w", err)
		}
		if ok {
			return l.releaseFunc(key, token), nil
		}
		if attempt >= l.opts.Tries {
			return nil, ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.opts.Backoff):
		}
	}
}

func (l *EventLocker) releaseFunc(key, token string) ReleaseFunc {
	return func(ctx context.Context) {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			zap.L().Warn("failed to release named lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
