package rmutex

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

// ErrLockTimeout indicates the lock could not be acquired within the bounded
// wait. Callers should treat it as retryable.
var ErrLockTimeout = errors.New("rmutex: lock acquire timeout")

// Locker provides named exclusive locks. The lock is held for the duration of
// fn and released on success or failure.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

const pollInterval = 100 * time.Millisecond

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker on a shared Redis, so locks stay correct when
// multiple worker processes run. Each lock carries a lease: a crashed holder
// cannot block a chat past the lease TTL.
type RedisLocker struct {
	client      *redis.Client
	logger      *slog.Logger
	lease       time.Duration
	acquireWait time.Duration
}

// NewRedisLocker creates a Redis-backed locker with the given lease TTL and
// bounded acquire wait.
func NewRedisLocker(client *redis.Client, logger *slog.Logger, lease, acquireWait time.Duration) *RedisLocker {
	return &RedisLocker{
		client:      client,
		logger:      logger.With("component", "rmutex"),
		lease:       lease,
		acquireWait: acquireWait,
	}
}

// WithLock runs fn while holding the named lock.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	token := uuid.NewString()
	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}
	defer l.release(key, token)
	return fn()
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.acquireWait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return fmt.Errorf("rmutex acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	// Release must not inherit a cancelled job context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
		l.logger.Warn("failed releasing lock", "key", key, "error", err)
	}
}

// MemoryLocker implements Locker in-process. Suitable for single-process
// deployments and tests.
type MemoryLocker struct {
	mu          sync.Mutex
	locks       map[string]*sync.Mutex
	acquireWait time.Duration
}

// NewMemoryLocker creates an in-memory locker with a bounded acquire wait.
func NewMemoryLocker(acquireWait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		locks:       make(map[string]*sync.Mutex),
		acquireWait: acquireWait,
	}
}

func (l *MemoryLocker) forKey(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// WithLock runs fn while holding the named lock.
func (l *MemoryLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	m := l.forKey(key)
	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()

	timer := time.NewTimer(l.acquireWait)
	defer timer.Stop()
	select {
	case <-acquired:
	case <-timer.C:
		// The goroutine still owns the pending Lock; unlock once it lands.
		go func() {
			<-acquired
			m.Unlock()
		}()
		return fmt.Errorf("%w: %s", ErrLockTimeout, key)
	case <-ctx.Done():
		go func() {
			<-acquired
			m.Unlock()
		}()
		return ctx.Err()
	}

	defer m.Unlock()
	return fn()
}
