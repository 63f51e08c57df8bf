package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	widgetLockKeyPattern = "account:lock:%s"
	lockTTL              = 5 * time.Second
	lockRetryInterval    = 10 * time.Millisecond
	defaultLockWait      = 500 * time.Millisecond
)

// ErrWidgetLocked indicates that another request still holds the widget lock.
var ErrWidgetLocked = errors.New("widget is locked, try again later")

// Locker serialises operations on a single widget.
type Locker interface {
	// Lock blocks until the widget lock is held and returns its release func.
	Lock(ctx context.Context, id string) (func(), error)
}

// MemoryLocker is a keyed mutex for single-process deployments.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker returns an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyedLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(id, entry, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(id, entry, true) })
	}, nil
}

func (l *MemoryLocker) release(id string, entry *keyedLock, held bool) {
	if held {
		<-entry.ch
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
}

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX lock shared by every service replica.
type RedisLocker struct {
	client *redis.Client
	log    *slog.Logger
	wait   time.Duration
}

// NewRedisLocker builds a RedisLocker that waits up to wait for a busy lock.
func NewRedisLocker(client *redis.Client, log *slog.Logger, wait time.Duration) *RedisLocker {
	if log == nil {
		log = slog.Default()
	}
	if wait <= 0 {
		wait = defaultLockWait
	}

	return &RedisLocker{client: client, log: log, wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context, id string) (func(), error) {
	key := fmt.Sprintf(widgetLockKeyPattern, id)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			l.log.Error("failed to acquire widget lock", "widget_id", id, "error", err)
			return nil, err
		}
		if acquired {
			break
		}

		if time.Now().After(deadline) {
			l.log.Warn("widget lock already held", "widget_id", id)
			return nil, ErrWidgetLocked
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	return func() {
		if err := unlockScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err(); err != nil {
			l.log.Error("failed to release widget lock", "widget_id", id, "error", err)
		}
	}, nil
}
