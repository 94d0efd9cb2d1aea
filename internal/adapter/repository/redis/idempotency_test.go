package redis

import (
	"context"
	"testing"
	"time"
)

func TestIdempotencyStoreCheckAndSet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, _, err := store.CheckAndSet(ctx, "dep-corr-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if exists {
		t.Fatal("expected first check to claim the key")
	}

	exists, existing, err := store.CheckAndSet(ctx, "dep-corr-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !exists {
		t.Fatal("expected second check to see the claimed key")
	}
	if string(existing) != "processing" {
		t.Fatalf("expected processing placeholder, got %s", existing)
	}
}

func TestIdempotencyStoreUpdate(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "tr-corr-1", nil, time.Minute); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if err := store.Update(ctx, "tr-corr-1", []byte(`{"status":"completed"}`), time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	exists, existing, err := store.CheckAndSet(ctx, "tr-corr-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !exists {
		t.Fatal("expected key to exist after update")
	}
	if string(existing) != `{"status":"completed"}` {
		t.Fatalf("unexpected stored response: %s", existing)
	}
}

func TestIdempotencyStoreTTLExpiry(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "short-lived", nil, time.Second); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	exists, _, err := store.CheckAndSet(ctx, "short-lived", nil, time.Second)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if exists {
		t.Fatal("expected key to expire")
	}
}
