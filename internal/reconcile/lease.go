package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raktimproloy/shopify-backend/pkg/redis"
)

const defaultLeaseTTL = 15 * time.Minute

// Lease guards a sync scope so overlapping runs cannot interleave writes.
type Lease interface {
	Acquire(ctx context.Context, scope string) (bool, error)
	Release(ctx context.Context, scope string) error
}

// leaseStore defines the Redis operations RedisLease needs.
type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(scope string) string
}

// RedisLease implements Lease using SETNX + TTL. The TTL bounds how long a
// crashed run can block the next one.
type RedisLease struct {
	client leaseStore
	ttl    time.Duration

	mu     sync.Mutex
	owners map[string]string
}

// NewRedisLease constructs a Redis-backed lease.
func NewRedisLease(client leaseStore, ttl time.Duration) (*RedisLease, error) {
	if client == nil {
		return nil, errors.New("redis client required for lease")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLease{client: client, ttl: ttl, owners: make(map[string]string)}, nil
}

// Acquire tries to own the scope for the configured TTL.
func (l *RedisLease) Acquire(ctx context.Context, scope string) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.client.LockKey(scope), owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.owners[scope] = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the scope only if this lease still owns it.
func (l *RedisLease) Release(ctx context.Context, scope string) error {
	l.mu.Lock()
	owner := l.owners[scope]
	l.mu.Unlock()
	if owner == "" {
		return nil
	}
	key := l.client.LockKey(scope)
	value, err := l.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lease owner: %w", err)
	}
	if value != owner {
		return nil
	}
	if err := l.client.Del(ctx, key); err != nil {
		return fmt.Errorf("delete lease: %w", err)
	}
	l.mu.Lock()
	delete(l.owners, scope)
	l.mu.Unlock()
	return nil
}
