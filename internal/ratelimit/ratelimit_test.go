package ratelimit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shoplist/shoplist-go/internal/platform/cache/memory"
	"github.com/shoplist/shoplist-go/internal/ratelimit"
)

func TestLimiter_Allow(t *testing.T) {
	cache := memory.New(time.Minute, 0)
	defer cache.Close()

	cfg := &ratelimit.Config{
		RequestsPerWindow: 5,
		Window:            time.Minute,
		KeyPrefix:         "test:",
	}
	limiter := ratelimit.New(cache, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := limiter.Allow(ctx, "client1")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !result.Allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	result, err := limiter.Allow(ctx, "client1")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if result.Allowed {
		t.Error("6th request should be denied")
	}
	if result.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", result.Remaining)
	}
}

func TestLimiter_DifferentKeys(t *testing.T) {
	cache := memory.New(time.Minute, 0)
	defer cache.Close()

	cfg := &ratelimit.Config{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		KeyPrefix:         "test:",
	}
	limiter := ratelimit.New(cache, cfg)
	ctx := context.Background()

	limiter.Allow(ctx, "client1")
	limiter.Allow(ctx, "client1")
	result, _ := limiter.Allow(ctx, "client1")
	if result.Allowed {
		t.Error("client1 should be rate limited")
	}

	result, _ = limiter.Allow(ctx, "client2")
	if !result.Allowed {
		t.Error("client2 should be allowed")
	}
}

func TestLimiter_Reset(t *testing.T) {
	cache := memory.New(time.Minute, 0)
	defer cache.Close()

	cfg := &ratelimit.Config{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		KeyPrefix:         "test:",
	}
	limiter := ratelimit.New(cache, cfg)
	ctx := context.Background()

	limiter.Allow(ctx, "client1")
	if result, _ := limiter.Allow(ctx, "client1"); result.Allowed {
		t.Error("client1 should be rate limited")
	}

	limiter.Reset(ctx, "client1")
	if result, _ := limiter.Allow(ctx, "client1"); !result.Allowed {
		t.Error("client1 should be allowed after reset")
	}
}

func TestMiddleware(t *testing.T) {
	cache := memory.New(time.Minute, 0)
	defer cache.Close()

	cfg := &ratelimit.Config{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		KeyPrefix:         "test:",
	}
	limiter := ratelimit.New(cache, cfg)

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestKeyFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if got := ratelimit.KeyFromRequest(req); got != "10.0.0.1" {
		t.Errorf("got %q, want 10.0.0.1", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ratelimit.KeyFromRequest(req); got != "203.0.113.9" {
		t.Errorf("got %q, want 203.0.113.9", got)
	}
}
