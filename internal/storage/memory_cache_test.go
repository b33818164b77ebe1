package storage

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache(time.Minute, time.Minute)
	ctx := testContext(t)

	value := []byte("payload")
	if err := cache.Set(ctx, "k", value, 50*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'X'

	got, err := cache.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Get() = %s, want payload", got)
	}

	time.Sleep(80 * time.Millisecond)
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after expiry error = %v, want ErrCacheMiss", err)
	}

	_ = cache.Set(ctx, "gone", []byte("1"), time.Minute)
	_ = cache.Del(ctx, "gone")
	if _, err := cache.Get(ctx, "gone"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Del error = %v", err)
	}

	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	_ = cache.Set(ctx, "x", []byte("1"), time.Minute)
	_ = cache.Close()
	if _, err := cache.Get(ctx, "x"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Close error = %v, want ErrCacheMiss", err)
	}
}
