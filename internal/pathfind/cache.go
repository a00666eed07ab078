package pathfind

import (
	"container/list"
	"hash/fnv"

	"bombkernel/internal/grid"
)

// CacheKey identifies a cached path by start, goal, and a coarse bucket of
// the danger field along the straight-line corridor between them, so that
// two otherwise-identical queries made under different danger conditions
// don't collide (spec.md §4.4).
type CacheKey struct {
	Start       grid.Position
	Goal        grid.Position
	DangerHash  uint64
}

type cacheEntry struct {
	key        CacheKey
	path       []grid.Position
	expiresAt  uint64
	tiles      []grid.Position // every tile on path, for blocked-tile invalidation
}

// Cache is a bounded LRU of recently computed paths, keyed by (start, goal,
// danger-bucket hash) with a tick-based TTL. A cached path is invalidated
// immediately if any of its tiles becomes non-walkable in the current
// snapshot (spec.md §4.4).
type Cache struct {
	capacity int
	ttl      uint64
	ll       *list.List
	index    map[CacheKey]*list.Element
}

// NewCache constructs a path cache holding up to capacity entries, each
// valid for ttl ticks after insertion.
func NewCache(capacity int, ttl uint64) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		index:    make(map[CacheKey]*list.Element),
	}
}

// Get returns a cached path if present, unexpired, and still fully
// walkable on g; otherwise it evicts the stale entry (if any) and reports a
// miss.
func (c *Cache) Get(key CacheKey, currentTick uint64, g *grid.Grid) ([]grid.Position, bool) {
	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if currentTick > entry.expiresAt {
		c.remove(el)
		return nil, false
	}
	for _, p := range entry.tiles {
		if !g.Tile(p).Walkable() {
			c.remove(el)
			return nil, false
		}
	}
	c.ll.MoveToFront(el)
	return entry.path, true
}

// Put stores a computed path, evicting the least-recently-used entry if the
// cache is at capacity.
func (c *Cache) Put(key CacheKey, path []grid.Position, insertedAtTick uint64) {
	if el, ok := c.index[key]; ok {
		c.remove(el)
	}
	entry := &cacheEntry{
		key:       key,
		path:      path,
		expiresAt: insertedAtTick + c.ttl,
		tiles:     append([]grid.Position(nil), path...),
	}
	el := c.ll.PushFront(entry)
	c.index[key] = el
	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}
}

func (c *Cache) remove(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	delete(c.index, entry.key)
	c.ll.Remove(el)
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int { return c.ll.Len() }

// DangerBucket hashes a coarse quantization of danger values along the
// straight-line corridor between start and goal into a single bucket id,
// so near-identical danger fields share a cache key while meaningfully
// different ones don't.
func DangerBucket(start, goal grid.Position, danger DangerSampler) uint64 {
	h := fnv.New64a()
	if danger == nil {
		return 0
	}
	steps := start.Manhattan(goal)
	if steps == 0 {
		steps = 1
	}
	for i := int32(0); i <= steps; i++ {
		t := float32(i) / float32(steps)
		x := start.X + int32(float32(goal.X-start.X)*t)
		y := start.Y + int32(float32(goal.Y-start.Y)*t)
		v := danger(grid.Position{X: x, Y: y})
		bucket := byte(v * 10) // coarse decile quantization
		h.Write([]byte{bucket})
	}
	return h.Sum64()
}
