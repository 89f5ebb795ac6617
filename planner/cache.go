package planner

import (
	"container/list"
	"sync"

	"github.com/polypheny/polypheny-go/algebra"
)

// cacheEntry is the value stored in both PlanCache and ImplementationCache;
// Generation pins the entry to the catalog.Snapshot it was computed
// against so a DDL change invalidates it without a full cache flush.
type cacheEntry struct {
	key        string
	plan       algebra.AlgNode
	generation int64
	elem       *list.Element
}

// boundedCache is a small LRU shared by PlanCache and ImplementationCache;
// both are bounded to avoid unbounded growth across a long-running server
// (§4.5, §7 resource limits).
type boundedCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*cacheEntry
}

func newBoundedCache(capacity int) *boundedCache {
	return &boundedCache{capacity: capacity, order: list.New(), entries: map[string]*cacheEntry{}}
}

// Get returns the cached plan for key if present and still current for
// generation; a stale generation is treated as a miss and evicted.
func (c *boundedCache) Get(key string, generation int64) (algebra.AlgNode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.generation != generation {
		c.order.Remove(e.elem)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(e.elem)
	return e.plan, true
}

// Put stores plan under key, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *boundedCache) Put(key string, generation int64, plan algebra.AlgNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.plan, e.generation = plan, generation
		c.order.MoveToFront(e.elem)
		return
	}
	e := &cacheEntry{key: key, plan: plan, generation: generation}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e
	if c.capacity > 0 && len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			old := oldest.Value.(*cacheEntry)
			c.order.Remove(oldest)
			delete(c.entries, old.key)
		}
	}
}

// PlanCache memoizes the optimizer's output keyed by a canonical,
// parameterized plan signature (§4.5: "the same shape with different
// literal values hits the same cache entry"), per the teacher's
// PreparedDataCache pattern in engine.go generalized from query text to
// algebra shape.
type PlanCache struct{ *boundedCache }

func NewPlanCache(capacity int) *PlanCache {
	return &PlanCache{newBoundedCache(capacity)}
}

// ImplementationCache memoizes the chosen physical operator tree for a
// cached logical plan plus its required trait set, so repeated
// executions of the same prepared statement skip rule firing entirely.
type ImplementationCache struct{ *boundedCache }

func NewImplementationCache(capacity int) *ImplementationCache {
	return &ImplementationCache{newBoundedCache(capacity)}
}
