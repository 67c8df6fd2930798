package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anved/listkeeper/internal/cache"
	"github.com/anved/listkeeper/internal/cache/memory"
)

func newTestCache(t *testing.T) *memory.Cache {
	t.Helper()
	c := memory.New(time.Minute, 0) // no cleanup goroutine in tests
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSetGetDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("expected %q, got %q", "value", got)
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "key"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	first, _ := c.Get(ctx, "key")
	first[0] = 'X'

	second, _ := c.Get(ctx, "key")
	if string(second) != "value" {
		t.Errorf("cached value was mutated through a returned slice: %q", second)
	}
}

func TestGet_Expired(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "key", []byte("value"), time.Nanosecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := c.Get(ctx, "key"); !errors.Is(err, cache.ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}

	exists, err := c.Exists(ctx, "key")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expired key should not report as existing")
	}
}

func TestIncrement_Window(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	ttl := 30 * time.Second

	count, resetAt, err := c.Increment(ctx, "counter", 1, ttl)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	count2, resetAt2, err := c.Increment(ctx, "counter", 1, ttl)
	if err != nil {
		t.Fatalf("second Increment failed: %v", err)
	}
	if count2 != 2 {
		t.Errorf("expected count 2, got %d", count2)
	}
	// The window opened by the first increment is preserved.
	if !resetAt2.Equal(resetAt) {
		t.Errorf("window reset time changed: %v -> %v", resetAt, resetAt2)
	}

	got, err := c.GetCount(ctx, "counter")
	if err != nil {
		t.Fatalf("GetCount failed: %v", err)
	}
	if got != 2 {
		t.Errorf("expected GetCount 2, got %d", got)
	}

	if err := c.Reset(ctx, "counter"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	got, _ = c.GetCount(ctx, "counter")
	if got != 0 {
		t.Errorf("expected count 0 after reset, got %d", got)
	}
}

func TestIncrement_ExpiredWindowRestarts(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if _, _, err := c.Increment(ctx, "counter", 5, time.Nanosecond); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	count, _, err := c.Increment(ctx, "counter", 1, time.Minute)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected fresh window to start at 1, got %d", count)
	}
}
