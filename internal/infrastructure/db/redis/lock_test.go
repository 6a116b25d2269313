package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-management/internal/core/domain"
)

func TestClientLock_Key(t *testing.T) {
	l := NewClientLock(nil, 0, zerolog.Nop())
	if got := l.key(42); got != "usermgmt:lock:client:42" {
		t.Errorf("unexpected key %q", got)
	}
	if l.ttl != defaultLockTTL || l.retry != retryInterval {
		t.Errorf("expected default ttl and retry, got %s and %s", l.ttl, l.retry)
	}
}

func TestConfig_Options(t *testing.T) {
	opts := Config{Addr: "cache:6379", Password: "secret", DB: 2}.options()
	if opts.Addr != "cache:6379" || opts.Password != "secret" || opts.DB != 2 {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.DialTimeout != defaultTimeout {
		t.Errorf("expected default dial timeout, got %s", opts.DialTimeout)
	}
	if got := (Config{Timeout: time.Second}).options().DialTimeout; got != time.Second {
		t.Errorf("expected configured dial timeout, got %s", got)
	}
}

func newTestClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := Connect(context.Background(), Config{Addr: addr, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// TestClientLock_Exclusive needs a live Redis at REDIS_TEST_ADDR.
func TestClientLock_Exclusive(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	holder := NewClientLock(client, 5*time.Second, zerolog.Nop())
	waiter := NewClientLock(client, 200*time.Millisecond, zerolog.Nop())
	clientID := time.Now().UnixNano()

	unlock, err := holder.Lock(ctx, clientID)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	start := time.Now()
	if _, err := waiter.Lock(ctx, clientID); !errors.Is(err, domain.ErrAssignmentInProgress) {
		t.Fatalf("expected ErrAssignmentInProgress while held, got %v", err)
	}
	if waited := time.Since(start); waited < 200*time.Millisecond {
		t.Fatalf("gave up after %s, before the ttl", waited)
	}

	unlock()

	unlock, err = waiter.Lock(ctx, clientID)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	unlock()
}

// TestClientLock_WaitsForRelease needs a live Redis at REDIS_TEST_ADDR.
func TestClientLock_WaitsForRelease(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	lock := NewClientLock(client, 2*time.Second, zerolog.Nop())
	clientID := time.Now().UnixNano()

	unlock, err := lock.Lock(ctx, clientID)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	time.AfterFunc(100*time.Millisecond, unlock)

	second, err := lock.Lock(ctx, clientID)
	if err != nil {
		t.Fatalf("expected the lock once released, got %v", err)
	}
	second()
}
