package infra

import (
	"context"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// MemoryCache é uma implementação simples do HistoryCache em memória,
// com expiração por entrada e limpeza periódica.
//
// Útil para testes, desenvolvimento e deployments de nó único.
type MemoryCache struct {
	mu           sync.Mutex
	entries      map[domain.Key]memoryEntry
	cleanupEvery time.Duration
}

type memoryEntry struct {
	history   []time.Time
	expiresAt time.Time
}

type MemoryCacheOption func(*MemoryCache)

func WithCacheCleanupEvery(d time.Duration) MemoryCacheOption {
	return func(c *MemoryCache) { c.cleanupEvery = d }
}

func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		entries:      make(map[domain.Key]memoryEntry),
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ domain.HistoryCache = (*MemoryCache)(nil)

func (c *MemoryCache) Get(_ context.Context, key domain.Key) ([]time.Time, bool, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !ent.expiresAt.After(now) {
		delete(c.entries, key)
		return nil, false, nil
	}

	out := make([]time.Time, len(ent.history))
	copy(out, ent.history)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key domain.Key, history []time.Time, ttl time.Duration) error {
	stored := make([]time.Time, len(history))
	copy(stored, history)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		history:   stored,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Cleanup() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, ent := range c.entries {
		if !ent.expiresAt.After(now) {
			delete(c.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que remove entradas expiradas periodicamente.
// Pare cancelando o contexto.
func (c *MemoryCache) StartJanitor(ctx DoneContext) {
	if c.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(c.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Cleanup()
			}
		}
	}()
}
