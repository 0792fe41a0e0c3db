package fbplus

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long fetched pages and threads stay fresh.
const DefaultCacheTTL = 10 * time.Minute

type cacheEntry[V any] struct {
	value   V
	created time.Time
}

// Cache memoizes values for a fixed time-to-live. Entries are only evicted
// lazily by Get; there is no capacity bound. A Cache is safe for concurrent
// use.
type Cache[V any] struct {
	ttl time.Duration
	now func() time.Time

	lock    sync.Mutex
	entries map[string]cacheEntry[V]
}

// NewCache returns an empty cache. A nil now uses time.Now.
func NewCache[V any](ttl time.Duration, now func() time.Time) *Cache[V] {
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry[V]),
	}
}

// Get returns the value stored under key if it is younger than the TTL.
// Expired entries are removed.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var zero V
	entry, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(entry.created) > c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return entry.value, true
}

// Put stores value under key, replacing any previous entry.
func (c *Cache[V]) Put(key string, value V) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.entries[key] = cacheEntry[V]{
		value:   value,
		created: c.now(),
	}
}

// Len returns the number of stored entries, including expired ones that have
// not been read since they expired.
func (c *Cache[V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.entries)
}

// ThreadCache holds the page-level and thread-level caches shared by every
// request a Client serves.
type ThreadCache struct {
	pages   *Cache[[]Post]
	threads *Cache[Thread]
}

// NewThreadCache returns empty page and thread caches sharing ttl and clock.
func NewThreadCache(ttl time.Duration, now func() time.Time) *ThreadCache {
	return &ThreadCache{
		pages:   NewCache[[]Post](ttl, now),
		threads: NewCache[Thread](ttl, now),
	}
}

// cacheKey joins the operation name and its quoted parameters, so that
// parameters containing separators cannot collide.
func cacheKey(op string, params ...string) string {
	var b strings.Builder
	b.WriteString(op)
	for _, p := range params {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(p))
	}
	return b.String()
}
