package infra

import (
	"context"
	"testing"
	"time"

	"admission-gateway/middleware/admission/domain"
)

func TestMemoryCache_MissOnUnknownKey(t *testing.T) {
	c := NewMemoryCache()

	_, ok, err := c.Get(context.Background(), "login:user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestMemoryCache_RoundTripReturnsCopy(t *testing.T) {
	c := NewMemoryCache()
	key := domain.Key("login:user_1")
	now := time.Now()

	if err := c.Set(context.Background(), key, []time.Time{now}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || !got[0].Equal(now) {
		t.Fatalf("unexpected history: %v", got)
	}

	// mutação do slice retornado não pode vazar para o cache
	got[0] = got[0].Add(time.Hour)
	again, _, _ := c.Get(context.Background(), key)
	if !again[0].Equal(now) {
		t.Fatalf("expected stored history to be isolated from caller mutation")
	}
}

func TestMemoryCache_ExpiresLazily(t *testing.T) {
	c := NewMemoryCache()
	key := domain.Key("login:user_1")

	if err := c.Set(context.Background(), key, []time.Time{time.Now()}, 2*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(4 * time.Millisecond)

	_, ok, err := c.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected expired entry to count as miss")
	}
}

func TestMemoryCache_CleanupRemovesExpiredEntries(t *testing.T) {
	c := NewMemoryCache(WithCacheCleanupEvery(0))
	key := domain.Key("login:user_1")

	_ = c.Set(context.Background(), key, []time.Time{time.Now()}, 2*time.Millisecond)
	time.Sleep(4 * time.Millisecond)

	c.Cleanup()

	c.mu.Lock()
	_, present := c.entries[key]
	c.mu.Unlock()
	if present {
		t.Fatalf("expected cleanup to delete expired entry")
	}
}
