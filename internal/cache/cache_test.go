package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

func TestMemoryProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryProvider()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	value := []byte("snapshot")
	if err := c.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[0] = 'X'

	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "snapshot" {
		t.Fatalf("unexpected get result %q, %v", got, err)
	}
	got[0] = 'Y'
	again, _ := c.Get(ctx, "k")
	if string(again) != "snapshot" {
		t.Fatalf("stored value was mutated through returned slice: %q", again)
	}

	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestMemoryProviderExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	c := NewMemoryProvider()
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != nil {
		t.Fatalf("expected hit before expiry, got %v", err)
	}

	now = now.Add(time.Second)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted")
	}
}

func TestMemoryProviderSetSweepsExpired(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryProvider()
	now := time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		if err := c.Set(ctx, fmt.Sprintf("v%d", i), []byte("x"), time.Second); err != nil {
			t.Fatalf("set: %v", err)
		}
		now = now.Add(2 * time.Second)
	}
	if c.Len() != 1 {
		t.Fatalf("expected expired keys to be swept on write, got %d entries", c.Len())
	}
	if err := c.Set(ctx, "forever", []byte("x"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(time.Hour)
	_ = c.Set(ctx, "next", []byte("x"), time.Minute)
	if _, err := c.Get(ctx, "forever"); err != nil {
		t.Fatalf("entries without a TTL must survive sweeps: %v", err)
	}
}

func TestNoopProviderAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var p Provider = NoopProvider{}
	if err := p.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestNewRedisProviderRequiresAddr(t *testing.T) {
	if _, err := NewRedisProvider(RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestNewRedisProviderFailsFastWhenUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewRedisProvider(RedisConfig{Addr: addr, DialTimeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatalf("expected connection error")
	}
}

func TestHostForTLS(t *testing.T) {
	if got := hostForTLS("cache.internal:6380"); got != "cache.internal" {
		t.Fatalf("unexpected host %q", got)
	}
	if got := hostForTLS("cache.internal"); got != "cache.internal" {
		t.Fatalf("unexpected host %q", got)
	}
}

var (
	_ Provider = NoopProvider{}
	_ Provider = (*MemoryProvider)(nil)
	_ Provider = (*RedisProvider)(nil)
)
