package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/raktimproloy/shopify-backend/pkg/redis"
)

// fakeLeaseStore emulates the Redis SETNX/GET/DEL subset backing RedisLease.
type fakeLeaseStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeLeaseStore() *fakeLeaseStore {
	return &fakeLeaseStore{values: make(map[string]string)}
}

func (s *fakeLeaseStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.values[key]; held {
		return false, nil
	}
	s.values[key] = fmt.Sprint(value)
	return true, nil
}

func (s *fakeLeaseStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeLeaseStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *fakeLeaseStore) LockKey(scope string) string {
	return "lock:" + scope
}

func TestRedisLeaseAcquireConflict(t *testing.T) {
	store := newFakeLeaseStore()
	lease, err := NewRedisLease(store, time.Minute)
	if err != nil {
		t.Fatalf("new lease: %v", err)
	}

	ok, err := lease.Acquire(context.Background(), "inventory")
	if err != nil || !ok {
		t.Fatalf("expected first acquire to win, got ok=%v err=%v", ok, err)
	}
	ok, err = lease.Acquire(context.Background(), "inventory")
	if err != nil || ok {
		t.Fatalf("expected second acquire to lose, got ok=%v err=%v", ok, err)
	}

	if err := lease.Release(context.Background(), "inventory"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = lease.Acquire(context.Background(), "inventory")
	if err != nil || !ok {
		t.Fatalf("expected acquire after release to win, got ok=%v err=%v", ok, err)
	}
}

func TestRedisLeaseReleaseOnlyWhenOwner(t *testing.T) {
	store := newFakeLeaseStore()
	first, err := NewRedisLease(store, time.Minute)
	if err != nil {
		t.Fatalf("new lease: %v", err)
	}
	second, err := NewRedisLease(store, time.Minute)
	if err != nil {
		t.Fatalf("new lease: %v", err)
	}

	if ok, _ := first.Acquire(context.Background(), "inventory"); !ok {
		t.Fatal("expected acquire to win")
	}
	// The second instance never owned the scope, so releasing is a no-op.
	if err := second.Release(context.Background(), "inventory"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, held := store.values[store.LockKey("inventory")]; !held {
		t.Fatal("expected lock still held by the first instance")
	}
}

func TestRedisLeaseReleaseAfterExpiry(t *testing.T) {
	store := newFakeLeaseStore()
	lease, err := NewRedisLease(store, time.Minute)
	if err != nil {
		t.Fatalf("new lease: %v", err)
	}
	if ok, _ := lease.Acquire(context.Background(), "inventory"); !ok {
		t.Fatal("expected acquire to win")
	}

	// Simulate the TTL expiring and another process taking the lock.
	key := store.LockKey("inventory")
	store.mu.Lock()
	store.values[key] = "someone-else"
	store.mu.Unlock()

	if err := lease.Release(context.Background(), "inventory"); err != nil {
		t.Fatalf("release: %v", err)
	}
	store.mu.Lock()
	value := store.values[key]
	store.mu.Unlock()
	if value != "someone-else" {
		t.Fatalf("expected the new owner's lock untouched, got %q", value)
	}

	// An expired key tolerates release too.
	if err := store.Del(context.Background(), key); err != nil {
		t.Fatalf("del: %v", err)
	}
	if err := lease.Release(context.Background(), "inventory"); err != nil {
		t.Fatalf("release after expiry: %v", err)
	}
}

func TestRedisLeaseConcurrentScopes(t *testing.T) {
	store := newFakeLeaseStore()
	lease, err := NewRedisLease(store, time.Minute)
	if err != nil {
		t.Fatalf("new lease: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scope := fmt.Sprintf("scope-%d", i%4)
			ok, err := lease.Acquire(context.Background(), scope)
			if err != nil {
				t.Errorf("acquire %s: %v", scope, err)
				return
			}
			if !ok {
				return
			}
			if err := lease.Release(context.Background(), scope); err != nil {
				t.Errorf("release %s: %v", scope, err)
			}
		}(i)
	}
	wg.Wait()
}
