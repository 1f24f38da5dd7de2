package tessellation

import (
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/region"
)

// CachePolicy bounds the loaded region coverages kept in memory. Zero
// means unlimited.
type CachePolicy struct {
	SizeLimit  int64 // bytes of cell data
	CountLimit int   // number of regions
}

// DefaultCachePolicy keeps about 10 MiB of coverage data
var DefaultCachePolicy = CachePolicy{SizeLimit: 10 * 1024 * 1024}

// Cache keeps loaded region coverages. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(code region.Code) (cells.Collection, bool)
	Add(code region.Code, coverage cells.Collection)
}

// LRUCache evicts the least recently used coverage once either limit is
// exceeded. The most recent entry is always kept, even when it alone is over
// the size limit.
type LRUCache struct {
	mu        sync.Mutex
	entries   *lru.Cache[region.Code, cells.Collection]
	sizeLimit int64
	size      int64
}

// NewCache creates an LRUCache with policy
func NewCache(policy CachePolicy) (*LRUCache, error) {
	c := &LRUCache{sizeLimit: policy.SizeLimit}
	count := policy.CountLimit
	if count <= 0 {
		count = math.MaxInt32
	}
	entries, err := lru.NewWithEvict[region.Code, cells.Collection](count, func(_ region.Code, evicted cells.Collection) {
		c.size -= sizeOf(evicted)
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// Get returns the cached coverage of code
func (c *LRUCache) Get(code region.Code) (cells.Collection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(code)
}

// Add stores a coverage, evicting older ones past the limits
func (c *LRUCache) Add(code region.Code, coverage cells.Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries.Contains(code) {
		return
	}
	c.entries.Add(code, coverage)
	c.size += sizeOf(coverage)
	for c.sizeLimit > 0 && c.size > c.sizeLimit && c.entries.Len() > 1 {
		c.entries.RemoveOldest()
	}
}

// Len returns the number of cached regions
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Size returns the bytes of cached cell data
func (c *LRUCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func sizeOf(c cells.Collection) int64 {
	return int64(len(c)) * 8
}
