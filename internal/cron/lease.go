package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLeaseTTL = 5 * time.Minute

// ErrLeaseLost reports that another worker now owns the sweep lease.
var ErrLeaseLost = errors.New("cron lease lost")

// Lease gives one worker at a time the right to run a sweep cycle.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) error
	Release(ctx context.Context) error
	TTL() time.Duration
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndExpire(ctx context.Context, key, expected string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// RedisLease stores a random owner token under key. Renewal and release only
// touch the key while it still carries that token.
type RedisLease struct {
	store leaseStore
	key   string
	ttl   time.Duration

	mu    sync.Mutex
	owner string
}

func NewRedisLease(store leaseStore, key string, ttl time.Duration) (*RedisLease, error) {
	if store == nil {
		return nil, errors.New("redis store required for lease")
	}
	if key == "" {
		return nil, errors.New("lease key is required")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLease{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLease) TTL() time.Duration { return l.ttl }

func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim lease %s: %w", l.key, err)
	}
	if ok {
		l.owner = token
	}
	return ok, nil
}

func (l *RedisLease) Renew(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner == "" {
		return ErrLeaseLost
	}
	ok, err := l.store.CompareAndExpire(ctx, l.key, l.owner, l.ttl)
	if err != nil {
		return fmt.Errorf("renew lease %s: %w", l.key, err)
	}
	if !ok {
		l.owner = ""
		return ErrLeaseLost
	}
	return nil
}

func (l *RedisLease) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner == "" {
		return nil
	}
	owner := l.owner
	l.owner = ""
	if _, err := l.store.CompareAndDelete(ctx, l.key, owner); err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}
