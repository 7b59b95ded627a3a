package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shoplist/shoplist-go/internal/platform/cache"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("got %q, want v", got)
	}
}

func TestGetMissing(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	if _, err := c.Get(context.Background(), "nope"); err != cache.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); err != cache.ErrExpired {
		t.Errorf("expected ErrExpired, got %v", err)
	}
	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Error("expired key must not exist")
	}
}

func TestDelete(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	c.Delete(ctx, "k")
	if _, err := c.Get(ctx, "k"); err != cache.ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("abc"), 0)
	got, _ := c.Get(ctx, "k")
	got[0] = 'x'

	again, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("cached value mutated through returned slice: %q", again)
	}
}

func TestCounter(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := c.Increment(ctx, "cnt", 1, time.Minute)
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		if n != i {
			t.Errorf("got %d, want %d", n, i)
		}
	}

	n, _ := c.GetCount(ctx, "cnt")
	if n != 3 {
		t.Errorf("got count %d, want 3", n)
	}

	c.Reset(ctx, "cnt")
	if n, _ := c.GetCount(ctx, "cnt"); n != 0 {
		t.Errorf("got count %d after reset, want 0", n)
	}
}

func TestCounterWindowExpiry(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	c.Increment(ctx, "cnt", 5, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	// Expired counter restarts from zero.
	n, _ := c.Increment(ctx, "cnt", 1, time.Minute)
	if n != 1 {
		t.Errorf("got %d after window expiry, want 1", n)
	}
}

func TestDriverRegistration(t *testing.T) {
	c, err := cache.NewFromConfig("memory", map[string]any{
		"memory": map[string]any{"default_ttl_seconds": 60},
	})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if ok, _ := c.Exists(ctx, "k"); !ok {
		t.Error("expected key to exist")
	}
}
