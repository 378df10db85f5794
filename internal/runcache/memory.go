package runcache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a mutex-guarded map with lazy expiry (checked on Get),
// the in-process fallback when no Redis address is configured.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]memoryItem
	defaultTTL time.Duration
	maxEntries int
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (i memoryItem) expired() bool {
	return !i.expiresAt.IsZero() && time.Now().After(i.expiresAt)
}

func NewMemoryCache(opts *Options) *MemoryCache {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MemoryCache{
		items:      make(map[string]memoryItem),
		defaultTTL: opts.DefaultTTL,
		maxEntries: opts.MaxEntries,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || item.expired() {
		return nil, ErrKeyNotFound
	}
	return item.value, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		// Evict one arbitrary entry rather than carry LRU bookkeeping this
		// cache's read-mostly workload has no real need for.
		for k := range c.items {
			delete(c.items, k)
			break
		}
	}
	c.items[key] = memoryItem{value: value, expiresAt: expiresAt}
	return nil
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return nil
}
