package cache

import (
	"sync"
	"time"
)

// expiryMargin keeps a cached URL from being handed out moments before it
// stops working.
const expiryMargin = 30 * time.Second

// CacheEntry represents a cached URL with expiration
type CacheEntry struct {
	URL        string
	ExpiryTime time.Time
}

// URLCache provides thread-safe caching of signed object URLs keyed by
// object key.
type URLCache struct {
	cache map[string]CacheEntry
	mutex sync.RWMutex
	now   func() time.Time
}

func NewURLCache() *URLCache {
	return &URLCache{
		cache: make(map[string]CacheEntry),
		now:   time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (c *URLCache) SetClock(now func() time.Time) {
	c.mutex.Lock()
	c.now = now
	c.mutex.Unlock()
}

// Get returns a URL that is still valid for at least expiryMargin.
func (c *URLCache) Get(key string) (string, bool) {
	c.mutex.RLock()
	entry, found := c.cache[key]
	now := c.now()
	c.mutex.RUnlock()

	if found && now.Add(expiryMargin).Before(entry.ExpiryTime) {
		return entry.URL, true
	}

	return "", false
}

func (c *URLCache) Set(key string, url string, expiry time.Time) {
	c.mutex.Lock()
	c.cache[key] = CacheEntry{
		URL:        url,
		ExpiryTime: expiry,
	}
	c.mutex.Unlock()
}

// Delete drops a key, used when the underlying object is removed.
func (c *URLCache) Delete(key string) {
	c.mutex.Lock()
	delete(c.cache, key)
	c.mutex.Unlock()
}

// Clear removes expired entries and reports how many were dropped.
func (c *URLCache) Clear() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.cache {
		if now.After(entry.ExpiryTime) {
			delete(c.cache, key)
			removed++
		}
	}
	return removed
}

func (c *URLCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}
