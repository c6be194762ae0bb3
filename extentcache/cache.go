// Package extentcache is the reference implementation of the fixedkv.Cache
// and fixedkv.Transaction contracts: a bounded, checksummed extent table
// backed by an mmap'd arena, giving the core engine a real, testable
// backing store instead of a mock.
package extentcache

import (
	"sync"

	"github.com/elastic/go-freelru"

	"github.com/xelexin/fixedkv/fixedkv"
)

func (c *Cache[K, V]) impossible(msg string) {
	c.opts.logger.Error("impossible: " + msg)
	panic("impossible: " + msg)
}

func hashPaddr(p fixedkv.Paddr) uint32 {
	return uint32(p) ^ uint32(p>>32)
}

// Cache is a bounded, checksummed extent table over an Arena. The
// authoritative store of resident extents is a plain map guarded by mu;
// the freelru-backed hot set on top of it classifies extents as hot or
// cold and drives which ones a rewrite pass (see Compact) should
// prioritize relocating, mirroring versionmap.go's relocation tracking
// without this reference implementation needing real physical
// serialization to back it.
type Cache[K any, V any] struct {
	opts  Options
	arena *Arena
	hot   *freelru.LRU[fixedkv.Paddr, struct{}]

	mu      sync.Mutex
	extents map[fixedkv.Paddr]*fixedkv.Node[K, V]
	cold    map[fixedkv.Paddr]struct{}
	rootBlk *fixedkv.RootBlock[K, V]

	readers *readerSlots
}

// New creates a Cache with its own arena and reader-slot table.
func New[K any, V any](opts ...Option) (*Cache[K, V], error) {
	o := resolveOptions(opts)
	arena, err := NewArena(o.arenaPages)
	if err != nil {
		return nil, err
	}
	hot, err := freelru.New[fixedkv.Paddr, struct{}](o.lruCapacity, hashPaddr)
	if err != nil {
		arena.Close()
		return nil, err
	}
	c := &Cache[K, V]{
		opts:    o,
		arena:   arena,
		hot:     hot,
		extents: make(map[fixedkv.Paddr]*fixedkv.Node[K, V]),
		cold:    make(map[fixedkv.Paddr]struct{}),
		readers: newReaderSlots(o.maxReaders),
	}
	c.hot.SetOnEvict(func(p fixedkv.Paddr, _ struct{}) {
		c.mu.Lock()
		c.cold[p] = struct{}{}
		c.mu.Unlock()
	})
	return c, nil
}

// NewTransaction starts a new transaction against this cache. weak
// transactions are read-only and register a reader slot so the cache
// knows not to reclaim any extent they might still observe.
func (c *Cache[K, V]) NewTransaction(weak bool) *Transaction[K, V] {
	return newTransaction(c, weak)
}

// GetRoot returns tx's own uncommitted root block if it has duplicated one
// for write, so a transaction always sees its own writes; otherwise it
// returns the cache's last committed root. This is what keeps a mutating
// transaction's pending root invisible to every other transaction until
// Commit.
func (c *Cache[K, V]) GetRoot(tx fixedkv.Transaction) (*fixedkv.RootBlock[K, V], error) {
	if t, ok := tx.(*Transaction[K, V]); ok {
		if rb := t.getPendingRoot(); rb != nil {
			return rb, nil
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rootBlk == nil {
		c.rootBlk = &fixedkv.RootBlock[K, V]{}
	}
	return c.rootBlk, nil
}

func (c *Cache[K, V]) GetRootFast(fixedkv.Transaction) *fixedkv.RootBlock[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rootBlk
}

func (c *Cache[K, V]) GetAbsentExtent(tx fixedkv.Transaction, paddr fixedkv.Paddr, kind fixedkv.ExtentKind) (*fixedkv.Node[K, V], error) {
	c.mu.Lock()
	n, ok := c.extents[paddr]
	delete(c.cold, paddr)
	c.mu.Unlock()
	if !ok {
		c.impossible("extentcache: no extent resident at " + paddr.String())
	}
	c.hot.Add(paddr, struct{}{})
	if t, ok := tx.(*Transaction[K, V]); ok {
		t.touch(paddr)
	}
	return n, nil
}

func (c *Cache[K, V]) AllocNewNonDataExtent(tx fixedkv.Transaction, kind fixedkv.ExtentKind, hint fixedkv.PlacementHint) (*fixedkv.Node[K, V], error) {
	paddr, err := c.arena.Alloc()
	if err != nil {
		return nil, err
	}
	var n *fixedkv.Node[K, V]
	if kind == fixedkv.ExtentLeaf {
		n = fixedkv.NewLeaf[K, V]()
	} else {
		n = fixedkv.NewInternal[K, V]()
	}
	n.SetPaddr(paddr)

	c.mu.Lock()
	c.extents[paddr] = n
	c.mu.Unlock()
	c.hot.Add(paddr, struct{}{})
	if t, ok := tx.(*Transaction[K, V]); ok {
		t.touch(paddr)
	}
	return n, nil
}

func (c *Cache[K, V]) DuplicateForWrite(tx fixedkv.Transaction, n *fixedkv.Node[K, V]) (*fixedkv.Node[K, V], error) {
	if n.IsMutable() {
		return n, nil
	}
	dup, err := c.AllocNewNonDataExtent(tx, extentKindOf(n), fixedkv.HintNone)
	if err != nil {
		return nil, err
	}
	fixedkv.CopyContentForDuplicate(dup, n)
	return dup, nil
}

// DuplicateRootForWrite returns a mutation-pending copy of r held privately
// on tx. The cache's committed root block is left untouched until tx
// commits, so no other transaction's GetRoot can observe this write in
// progress.
func (c *Cache[K, V]) DuplicateRootForWrite(tx fixedkv.Transaction, r *fixedkv.RootBlock[K, V]) (*fixedkv.RootBlock[K, V], error) {
	if r.IsPending() {
		return r, nil
	}
	dup := fixedkv.CloneRootBlock(r)
	if t, ok := tx.(*Transaction[K, V]); ok {
		t.setPendingRoot(dup)
	}
	return dup, nil
}

func (c *Cache[K, V]) RetireExtent(tx fixedkv.Transaction, n *fixedkv.Node[K, V]) error {
	c.mu.Lock()
	delete(c.extents, n.Paddr())
	delete(c.cold, n.Paddr())
	c.mu.Unlock()
	c.hot.Remove(n.Paddr())
	fixedkv.MarkRetired(n)
	if t, ok := tx.(*Transaction[K, V]); ok {
		t.addFreed(n.Paddr())
	}
	return nil
}

func (c *Cache[K, V]) TestQueryCache(paddr fixedkv.Paddr) *fixedkv.Node[K, V] {
	n, _ := c.residentAt(paddr)
	return n
}

// residentAt returns the node currently resident at paddr, if any.
func (c *Cache[K, V]) residentAt(paddr fixedkv.Paddr) (*fixedkv.Node[K, V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.extents[paddr]
	return n, ok
}

// ColdExtents returns the physical addresses the hot-set tracker has
// evicted since it last saw them fetched or allocated — Compact's GC
// worklist.
func (c *Cache[K, V]) ColdExtents() []fixedkv.Paddr {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]fixedkv.Paddr, 0, len(c.cold))
	for p := range c.cold {
		out = append(out, p)
	}
	return out
}

// commit publishes a transaction's writes: every extent it touched that is
// still MutationPending or Fresh becomes Stable, tx's pending root block
// (if it duplicated one) becomes the cache's committed root, and freed
// extents are returned to the arena if every registered reader has a
// larger transaction ID than tx. Freed extents that fail that check are
// not revisited later. This is the only place a mutating transaction's
// root becomes visible to other transactions.
func (c *Cache[K, V]) commit(tx *Transaction[K, V]) {
	c.mu.Lock()
	for paddr := range tx.touched {
		if n, ok := c.extents[paddr]; ok && n.IsMutable() {
			fixedkv.MarkStable(n, checksum(n.Paddr(), n.Size(), n.IsLeaf(), n.Meta().Depth))
		}
	}
	if rb := tx.getPendingRoot(); rb != nil {
		fixedkv.MarkRootStable(rb)
		c.rootBlk = rb
	} else if c.rootBlk != nil {
		fixedkv.MarkRootStable(c.rootBlk)
	}
	c.mu.Unlock()

	minVisible := c.readers.minVisible()
	for _, paddr := range tx.freed {
		if tx.id < minVisible {
			c.arena.Free(paddr)
		}
	}
}

// abort discards a transaction's writes: every Fresh extent it allocated
// is returned to the arena directly, since nothing else could ever
// reference it.
func (c *Cache[K, V]) abort(tx *Transaction[K, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for paddr := range tx.touched {
		if n, ok := c.extents[paddr]; ok && n.IsFresh() {
			delete(c.extents, paddr)
			c.arena.Free(paddr)
		}
	}
}

func extentKindOf[K any, V any](n *fixedkv.Node[K, V]) fixedkv.ExtentKind {
	if n.IsLeaf() {
		return fixedkv.ExtentLeaf
	}
	return fixedkv.ExtentInternal
}
