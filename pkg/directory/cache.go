package directory

import (
	"container/list"
	"context"
	"sync"

	"github.com/innover-platform/identity-core/pkg/identity"
)

// DefaultCacheSize is the per-process record cache capacity. Matches
// the bounded cache the platform has always run with.
const DefaultCacheSize = 1000

// Cache stores directory records keyed by subject id. Implementations
// must be safe for concurrent use. A Get miss is not an error.
type Cache interface {
	Get(ctx context.Context, id string) (*identity.DirectoryRecord, bool)
	Set(ctx context.Context, id string, record *identity.DirectoryRecord)
}

// MemoryCache is an in-process LRU cache of directory records. When the
// capacity is exceeded, the least recently used entry is evicted.
//
// MemoryCache is safe for concurrent use.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type cacheEntry struct {
	id     string
	record *identity.DirectoryRecord
}

// NewMemoryCache creates a MemoryCache with the given capacity. A
// capacity of zero or less falls back to [DefaultCacheSize].
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &MemoryCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the cached record for id, marking it most recently used.
func (c *MemoryCache) Get(_ context.Context, id string) (*identity.DirectoryRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).record, true
}

// Set stores the record for id, evicting the least recently used entry
// when the cache is full.
func (c *MemoryCache) Set(_ context.Context, id string, record *identity.DirectoryRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[id]; ok {
		elem.Value.(*cacheEntry).record = record
		c.order.MoveToFront(elem)
		return
	}

	c.entries[id] = c.order.PushFront(&cacheEntry{id: id, record: record})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).id)
	}
}

// Len returns the number of cached records.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CachedLookup wraps a [identity.DirectoryLookup] with a [Cache]. Only
// successful lookups are cached; failures pass through so a recovered
// directory serves the next request.
type CachedLookup struct {
	inner identity.DirectoryLookup
	cache Cache
}

var _ identity.DirectoryLookup = (*CachedLookup)(nil)

// NewCachedLookup creates a caching decorator around inner. A nil cache
// falls back to a [MemoryCache] with [DefaultCacheSize] capacity.
func NewCachedLookup(inner identity.DirectoryLookup, cache Cache) *CachedLookup {
	if cache == nil {
		cache = NewMemoryCache(DefaultCacheSize)
	}
	return &CachedLookup{inner: inner, cache: cache}
}

// LookupUser returns the cached record for id, or delegates to the
// wrapped lookup and caches the result on success.
func (c *CachedLookup) LookupUser(ctx context.Context, id string) (*identity.DirectoryRecord, error) {
	if record, ok := c.cache.Get(ctx, id); ok {
		return record, nil
	}

	record, err := c.inner.LookupUser(ctx, id)
	if err != nil {
		return nil, err
	}

	c.cache.Set(ctx, id, record)
	return record, nil
}
