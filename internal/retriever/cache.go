package retriever

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// resultCache is a fixed-capacity LRU cache for retrieval results, keyed
// by a digest of (query, threshold, count). Safe for concurrent use.
type resultCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	entries  map[string]*list.Element
}

type cacheEntry struct {
	key     string
	results []ChunkResult
}

func newResultCache(capacity int) *resultCache {
	return &resultCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// cacheKey digests the retrieval triple. Projection flags and doc filters
// are applied after the cache, so they are not part of the key.
func cacheKey(query string, threshold float64, count int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%g:%d", query, threshold, count))
	return hex.EncodeToString(sum[:])
}

// get returns the cached results and marks the entry most recently used.
func (c *resultCache) get(key string) ([]ChunkResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).results, true
}

// put stores results, evicting the least recently used entry at capacity.
func (c *resultCache) put(key string, results []ChunkResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).results = results
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, results: results})
}

// len returns the number of cached entries.
func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
