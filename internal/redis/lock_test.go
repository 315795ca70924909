package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestWithLock_RunsAndReleases(t *testing.T) {
	mr, rdb := newTestClient(t)
	locker := NewRedisLocker(rdb, 5*time.Second)

	ran := false
	err := locker.WithLock(context.Background(), "view:dashboard", func(ctx context.Context) error {
		ran = true
		if !mr.Exists("lock:view:dashboard") {
			t.Error("expected lock key to be held during fn")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock failed: %v", err)
	}
	if !ran {
		t.Fatal("expected fn to run")
	}
	if mr.Exists("lock:view:dashboard") {
		t.Error("expected lock key released after fn")
	}
}

func TestWithLock_Contended(t *testing.T) {
	mr, rdb := newTestClient(t)
	locker := NewRedisLocker(rdb, 5*time.Second)

	if err := mr.Set("lock:view:dashboard", "someone-else"); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	err := locker.WithLock(context.Background(), "view:dashboard", func(ctx context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	if !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired, got %v", err)
	}

	got, _ := mr.Get("lock:view:dashboard")
	if got != "someone-else" {
		t.Errorf("foreign lock must not be released, got %q", got)
	}
}

func TestWithLock_PropagatesError(t *testing.T) {
	_, rdb := newTestClient(t)
	locker := NewRedisLocker(rdb, 5*time.Second)

	boom := errors.New("boom")
	err := locker.WithLock(context.Background(), "k", func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
}
