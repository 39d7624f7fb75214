package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_GetOrLoad(t *testing.T) {
	c := cache.New[*domain.DashboardStats](5 * time.Minute)
	defer c.Close()

	calls := 0
	load := func(context.Context) (*domain.DashboardStats, error) {
		calls++
		return &domain.DashboardStats{TotalUsers: 45}, nil
	}

	v, hit, err := c.GetOrLoad(context.Background(), "stats", load)
	if err != nil || hit || v.TotalUsers != 45 {
		t.Fatalf("first load: v=%v hit=%v err=%v", v, hit, err)
	}
	v, hit, err = c.GetOrLoad(context.Background(), "stats", load)
	if err != nil || !hit || v.TotalUsers != 45 {
		t.Fatalf("second load: v=%v hit=%v err=%v", v, hit, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 load, got %d", calls)
	}
}

func TestCache_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	calls := 0
	_, _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("store down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("error result must not be cached")
	}
	if calls != 1 {
		t.Errorf("expected 1 load, got %d", calls)
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := cache.New[int](time.Millisecond)
	c.Close()
	c.Close()
}
