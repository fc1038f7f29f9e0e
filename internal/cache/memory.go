package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	count     int
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is a single-instance ICache for development and tests. Locks are
// always granted to whichever instance asks first, as with rueidis.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) get(key string) (memoryEntry, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(c.now()) {
		delete(c.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (c *MemoryCache) set(key string, value []byte, ttl time.Duration) {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry
}

func (c *MemoryCache) RegisterPlatform(string) error { return nil }

func (c *MemoryCache) DeleteInactivePlatform() error { return nil }

func (c *MemoryCache) StartIdentityTicker(string) {}

func (c *MemoryCache) GetRateLimit(userIdentifier string, requestsPerMinute int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := "ratelimit:" + userIdentifier
	entry, ok := c.get(key)
	if !ok {
		entry = memoryEntry{expiresAt: c.now().Add(time.Minute)}
	}
	entry.count++
	c.entries[key] = entry

	if entry.count > requestsPerMinute {
		return int(entry.expiresAt.Sub(c.now()).Seconds()) + 1, nil
	}
	return 0, nil
}

func (c *MemoryCache) TryAcquireLock(key string, instanceID string, ttlSeconds int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.get(key); ok {
		return false, nil
	}
	c.set(key, []byte(instanceID), time.Duration(ttlSeconds)*time.Second)
	return true, nil
}

func (c *MemoryCache) RefreshLock(key string, instanceID string, ttlSeconds int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.get(key)
	if !ok || string(entry.value) != instanceID {
		return false, nil
	}
	c.set(key, entry.value, time.Duration(ttlSeconds)*time.Second)
	return true, nil
}

func (c *MemoryCache) SetValue(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	c.set(key, stored, ttl)
	return nil
}

func (c *MemoryCache) GetValue(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

func (c *MemoryCache) DeleteValue(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) StartCooldown(_ context.Context, key string, ttl time.Duration) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.get(key); ok {
		return entry.expiresAt.Sub(c.now()), nil
	}
	c.set(key, []byte("1"), ttl)
	return 0, nil
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]memoryEntry)
	return nil
}
