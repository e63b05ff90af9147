package client

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 1024
)

type cachedEntry struct {
	payload  []byte
	status   int
	storedAt time.Time
}

// responseCache is a bounded TTL cache. Expiry is checked on lookup.
//
// gen advances on every Purge and Invalidate; a fetch that started before the
// advance must not write its result back.
type responseCache struct {
	entries *lru.Cache[RequestKey, cachedEntry]
	ttl     time.Duration
	now     func() time.Time

	mu  sync.Mutex
	gen uint64
}

func newResponseCache(size int, ttl time.Duration, now func() time.Time) (*responseCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	entries, err := lru.New[RequestKey, cachedEntry](size)
	if err != nil {
		return nil, err
	}
	return &responseCache{entries: entries, ttl: ttl, now: now}, nil
}

func (c *responseCache) get(key RequestKey) (cachedEntry, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return cachedEntry{}, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.entries.Remove(key)
		return cachedEntry{}, false
	}
	return e, true
}

func (c *responseCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// put stores payload unless the cache was purged or invalidated since gen.
func (c *responseCache) put(key RequestKey, payload []byte, status int, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.entries.Add(key, cachedEntry{payload: payload, status: status, storedAt: c.now()})
	return true
}

func (c *responseCache) invalidate(urlPrefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	removed := 0
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k.URL(), urlPrefix) {
			if c.entries.Remove(k) {
				removed++
			}
		}
	}
	return removed
}

func (c *responseCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries.Purge()
}

func (c *responseCache) len() int {
	return c.entries.Len()
}
