package fixedkv

import "sync/atomic"

// testTransaction is the minimal Transaction used across this package's own
// tests: one strong writer transaction per test, no reader-set tracking.
type testTransaction struct {
	weak  bool
	stats TreeStats
}

func (t *testTransaction) IsWeak() bool                    { return t.weak }
func (t *testTransaction) GetExtent(Paddr) PresenceStatus  { return Absent }
func (t *testTransaction) Stats() *TreeStats               { return &t.stats }

// testCache is a bare, non-concurrent-safe in-memory Cache used to exercise
// the core engine's algorithms in isolation from any real extent store —
// the extentcache package is exercised separately by its own tests.
type testCache[K any, V any] struct {
	next     atomic.Uint64
	extents  map[Paddr]*Node[K, V]
	rootBlk  *RootBlock[K, V]
}

func newTestCache[K any, V any]() *testCache[K, V] {
	return &testCache[K, V]{extents: make(map[Paddr]*Node[K, V])}
}

func (c *testCache[K, V]) allocPaddr() Paddr {
	return Paddr(c.next.Add(1))
}

func (c *testCache[K, V]) GetRoot(Transaction) (*RootBlock[K, V], error) {
	if c.rootBlk == nil {
		c.rootBlk = &RootBlock[K, V]{}
	}
	return c.rootBlk, nil
}

func (c *testCache[K, V]) GetRootFast(Transaction) *RootBlock[K, V] { return c.rootBlk }

func (c *testCache[K, V]) GetAbsentExtent(tx Transaction, paddr Paddr, kind ExtentKind) (*Node[K, V], error) {
	n, ok := c.extents[paddr]
	if !ok {
		impossible("test cache: no extent at %v", paddr)
	}
	return n, nil
}

func (c *testCache[K, V]) AllocNewNonDataExtent(tx Transaction, kind ExtentKind, hint PlacementHint) (*Node[K, V], error) {
	n := &Node[K, V]{leaf: kind == ExtentLeaf, state: stateFresh}
	n.paddr = c.allocPaddr()
	c.extents[n.paddr] = n
	return n, nil
}

func (c *testCache[K, V]) DuplicateForWrite(tx Transaction, n *Node[K, V]) (*Node[K, V], error) {
	if n.IsMutable() {
		return n, nil
	}
	dup := n.clone()
	dup.paddr = c.allocPaddr()
	c.extents[dup.paddr] = dup
	return dup, nil
}

func (c *testCache[K, V]) DuplicateRootForWrite(tx Transaction, r *RootBlock[K, V]) (*RootBlock[K, V], error) {
	if r.IsPending() {
		return r, nil
	}
	dup := r.clone()
	c.rootBlk = dup
	return dup, nil
}

func (c *testCache[K, V]) RetireExtent(tx Transaction, n *Node[K, V]) error {
	n.state = stateRetired
	delete(c.extents, n.paddr)
	return nil
}

func (c *testCache[K, V]) TestQueryCache(paddr Paddr) *Node[K, V] {
	return c.extents[paddr]
}

// commit finalizes every extent this transaction touched as Stable, the
// way a real Cache implementation would at transaction commit. Tests call
// this between operations to simulate crossing a commit boundary.
func (c *testCache[K, V]) commit() {
	for _, n := range c.extents {
		if n.IsMutable() {
			n.state = stateStable
			n.priorInstance = nil
		}
	}
	if c.rootBlk != nil {
		c.rootBlk.pending = false
		c.rootBlk.prior = nil
	}
}
