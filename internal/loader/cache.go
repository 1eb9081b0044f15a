package loader

import (
	"container/list"
	"sync"

	"github.com/tphakala/audiocore/internal/config"
)

// DecodeCache is an LRU keyed by fingerprint, capped by both entry count and
// total resident bytes (§4.7). Readers receive shared views pinned against
// eviction for the lifetime of the handle; eviction of a pinned entry is
// deferred until it is released.
//
// No ecosystem LRU in the retrieved pack caps by both entry count and byte
// size with a pinning concept, so this is a hand-rolled container/list LRU;
// patrickmn/go-cache (a sibling dependency) is TTL-only and has no
// eviction-order or pinning concept, so it is not a fit for this cap.
type DecodeCache struct {
	mu         sync.Mutex
	maxEntries int
	maxBytes   uint64
	totalBytes uint64

	ll    *list.List // front = most recently used
	items map[string]*list.Element
}

type cacheEntry struct {
	key      string
	artifact *DecodedArtifact
	bytes    uint64
	pins     int
}

// NewDecodeCache builds a DecodeCache from cfg.
func NewDecodeCache(cfg config.CacheConfig) *DecodeCache {
	maxEntries := int(cfg.MaxEntries)
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &DecodeCache{
		maxEntries: maxEntries,
		maxBytes:   cfg.MaxBytes,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

// artifactBytes estimates an artifact's resident size for the byte cap.
func artifactBytes(a *DecodedArtifact) uint64 {
	var total uint64
	for _, ch := range a.Samples {
		total += uint64(len(ch)) * 4
	}
	return total
}

// Get returns the cached artifact for fingerprint without pinning it,
// recording an access (moves it to the front of the LRU list). Suitable for
// existence checks; callers that hold the result across a suspend point
// should use Acquire instead so eviction cannot race them.
func (c *DecodeCache) Get(fingerprint string) (*DecodedArtifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[fingerprint]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).artifact, true
}

// PinnedArtifact is a cache entry pinned against eviction until Release.
type PinnedArtifact struct {
	*DecodedArtifact
	cache       *DecodeCache
	fingerprint string
	released    bool
}

// Release unpins the entry, making it eligible for eviction again. Safe to
// call at most once.
func (p *PinnedArtifact) Release() {
	if p.released {
		return
	}
	p.released = true
	p.cache.unpin(p.fingerprint)
}

// Acquire returns a pinned view of the cached artifact for fingerprint, or
// false if absent. The entry will not be evicted until Release is called.
func (c *DecodeCache) Acquire(fingerprint string) (*PinnedArtifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[fingerprint]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	entry.pins++
	return &PinnedArtifact{DecodedArtifact: entry.artifact, cache: c, fingerprint: fingerprint}, true
}

func (c *DecodeCache) unpin(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[fingerprint]
	if !ok {
		return
	}
	entry := el.Value.(*cacheEntry)
	if entry.pins > 0 {
		entry.pins--
	}
	c.evictLocked()
}

// Put inserts or replaces the entry for fingerprint, evicting
// least-recently-used unpinned entries until both caps hold.
func (c *DecodeCache) Put(fingerprint string, artifact *DecodedArtifact) {
	size := artifactBytes(artifact)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[fingerprint]; ok {
		entry := el.Value.(*cacheEntry)
		c.totalBytes -= entry.bytes
		entry.artifact = artifact
		entry.bytes = size
		c.totalBytes += size
		c.ll.MoveToFront(el)
		c.evictLocked()
		return
	}

	entry := &cacheEntry{key: fingerprint, artifact: artifact, bytes: size}
	el := c.ll.PushFront(entry)
	c.items[fingerprint] = el
	c.totalBytes += size
	c.evictLocked()
}

// evictLocked removes least-recently-used unpinned entries until both the
// entry-count and byte caps hold. An entry with pins > 0 is skipped; if
// every remaining entry below cap is pinned, eviction stops short of the
// cap rather than removing a view a reader still holds (§4.7). The most
// recently used entry is never a candidate, so an insertion never evicts
// the entry it just added.
func (c *DecodeCache) evictLocked() {
	for len(c.items) > c.maxEntries || (c.maxBytes > 0 && c.totalBytes > c.maxBytes) {
		el := c.evictionCandidateLocked()
		if el == nil {
			return
		}
		entry := el.Value.(*cacheEntry)
		c.ll.Remove(el)
		delete(c.items, entry.key)
		c.totalBytes -= entry.bytes
	}
}

func (c *DecodeCache) evictionCandidateLocked() *list.Element {
	for el := c.ll.Back(); el != nil && el != c.ll.Front(); el = el.Prev() {
		if el.Value.(*cacheEntry).pins == 0 {
			return el
		}
	}
	return nil
}

// Len returns the current entry count, for tests and stats.
func (c *DecodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
