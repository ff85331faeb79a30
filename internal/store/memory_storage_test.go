package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStorage(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	if _, err := storage.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	if err := storage.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, err := storage.Get(ctx, "key")
	if err != nil || val != "value" {
		t.Fatalf("Get = %q, %v", val, err)
	}

	if err := storage.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := storage.Get(ctx, "key"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v after delete, want ErrNotFound", err)
	}
}

func TestMemoryStorageSetNX(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	acquired, err := storage.SetNX(ctx, "lock", "1", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("first SetNX = %v, %v", acquired, err)
	}
	acquired, err = storage.SetNX(ctx, "lock", "2", time.Minute)
	if err != nil {
		t.Fatalf("second SetNX: %v", err)
	}
	if acquired {
		t.Fatal("SetNX overwrote an existing key")
	}
	val, _ := storage.Get(ctx, "lock")
	if val != "1" {
		t.Fatalf("lock value = %q, want original", val)
	}

	if err := storage.Delete(ctx, "lock"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	acquired, _ = storage.SetNX(ctx, "lock", "3", time.Minute)
	if !acquired {
		t.Fatal("SetNX failed after release")
	}
}

func TestMemoryStorageExpiry(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	if testing.Short() {
		t.Skip("skipping expiry wait in short mode")
	}
	if err := storage.Set(ctx, "short", "v", time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(2500 * time.Millisecond)
	if _, err := storage.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v after expiry, want ErrNotFound", err)
	}
}

func TestStorageWithPrefix(t *testing.T) {
	storage := NewMemoryStorage()
	prefixed := StorageWithPrefix(storage, "sip:")
	ctx := context.Background()

	if err := prefixed.Set(ctx, "10.0.0.1", "5", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, err := storage.Get(ctx, "sip:10.0.0.1")
	if err != nil || val != "5" {
		t.Fatalf("underlying Get = %q, %v", val, err)
	}
	if _, err := storage.Get(ctx, "10.0.0.1"); !errors.Is(err, ErrNotFound) {
		t.Fatal("unprefixed key leaked into the underlying storage")
	}

	if err := prefixed.Delete(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := prefixed.Get(ctx, "10.0.0.1"); !errors.Is(err, ErrNotFound) {
		t.Fatal("prefixed delete missed the key")
	}
}
