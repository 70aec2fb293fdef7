// Package lock serializes work on a key across processes (redis) or inside one process.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyKey = errors.New("lock key is empty")
	ErrNotHeld  = errors.New("lock was not held or already expired")
)

// Locker runs fn while holding key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type Options struct {
	Expiry      time.Duration
	Tries       int
	RetryDelay  time.Duration
	DriftFactor float64
}

func DefaultOptions() Options {
	return Options{
		Expiry:      30 * time.Second,
		Tries:       10,
		RetryDelay:  250 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// DebtKey is the lock key guarding one employee's debt ledger.
func DebtKey(companyID, employeeID string) string {
	return "lock:debt:" + companyID + ":employee:" + employeeID
}

// RedisLocker uses the redsync RedLock implementation.
type RedisLocker struct {
	rs   *redsync.Redsync
	opts Options
}

func NewRedisLocker(client redis.UniversalClient, opts Options) *RedisLocker {
	return &RedisLocker{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
	}
}

func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
		redsync.WithDriftFactor(l.opts.DriftFactor),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	defer func() {
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			slog.Warn("failed to release lock", "key", key, "error", err)
		}
	}()
	return fn(ctx)
}

// LocalLocker is a per-key mutex for single-process deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
	}
	defer func() { <-kl.ch }()

	return fn(ctx)
}
