package valkey

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/shoplist/shoplist-go/internal/platform/cache"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)

	c, err := New(&driverConfig{Address: srv.Addr(), DefaultTTLSeconds: 60})
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func TestSetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
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
	c, _ := newTestCache(t)

	if _, err := c.Get(context.Background(), "nope"); err != cache.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExpiry(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Second)
	srv.FastForward(2 * time.Second)

	if _, err := c.Get(ctx, "k"); err != cache.ErrNotFound {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestDeleteAndExists(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	if ok, _ := c.Exists(ctx, "k"); !ok {
		t.Error("expected key to exist")
	}

	c.Delete(ctx, "k")
	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Error("expected key gone after delete")
	}
}

func TestCounter(t *testing.T) {
	c, _ := newTestCache(t)
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

func TestCounterFixedWindow(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	c.Increment(ctx, "cnt", 1, time.Minute)
	srv.FastForward(30 * time.Second)

	// The second hit must not push the window out.
	c.Increment(ctx, "cnt", 1, time.Minute)
	srv.FastForward(31 * time.Second)

	if n, _ := c.GetCount(ctx, "cnt"); n != 0 {
		t.Errorf("window should have closed at first hit + TTL, count = %d", n)
	}
}
