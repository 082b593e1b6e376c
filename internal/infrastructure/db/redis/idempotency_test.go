package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func setupStore(t *testing.T) *IdempotencyStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := Connect(context.Background(), Config{Addr: addr, Timeout: time.Second})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client)
}

func TestIdempotencyStore_RememberAndLookup(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	key := uuid.NewString()

	if _, found, err := store.Lookup(ctx, 3, key); err != nil || found {
		t.Fatalf("fresh key: found=%v err=%v", found, err)
	}

	if err := store.Remember(ctx, 3, key, 41, time.Minute); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	// the first order stays bound to the key
	if err := store.Remember(ctx, 3, key, 42, time.Minute); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	id, found, err := store.Lookup(ctx, 3, key)
	if err != nil || !found || id != 41 {
		t.Fatalf("Lookup = %d %v %v", id, found, err)
	}

	if _, found, _ := store.Lookup(ctx, 4, key); found {
		t.Fatalf("key leaked to another subject")
	}
}

func TestIdempotencyStore_Expires(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	key := uuid.NewString()

	if err := store.Remember(ctx, 3, key, 7, 50*time.Millisecond); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if _, found, _ := store.Lookup(ctx, 3, key); found {
		t.Fatalf("key survived its ttl")
	}
}
