package fixedkv

import "context"

// BTree is the generic engine: a Cache-backed, copy-on-write B+tree over
// keys K and values V. It holds no physical state of its own beyond the
// comparator and structural options; everything durable lives behind
// Cache.
type BTree[K any, V any] struct {
	cache  Cache[K, V]
	ops    KeyOps[K]
	opts   Options
	linker TreeRootLinker[K, V]
}

// New wraps an existing Cache (and therefore an existing root, if any) in
// a BTree handle.
func New[K any, V any](cache Cache[K, V], ops KeyOps[K], opts ...Option) *BTree[K, V] {
	return &BTree[K, V]{cache: cache, ops: ops, opts: resolveOptions(opts), linker: treeRootLinker[K, V]{}}
}

// Mkfs creates a brand-new, empty tree: a single empty leaf as both root
// and only extent.
func Mkfs[K any, V any](ctx context.Context, tx Transaction, cache Cache[K, V], ops KeyOps[K], opts ...Option) (*BTree[K, V], error) {
	t := New(cache, ops, opts...)
	root, err := cache.AllocNewNonDataExtent(tx, ExtentLeaf, HintNone)
	if err != nil {
		return nil, err
	}
	root.meta = NodeMeta[K]{Begin: ops.Min(), End: ops.Max(), Depth: 0}
	rb, err := cache.GetRoot(tx)
	if err != nil {
		return nil, err
	}
	t.linker.LinkRoot(rb, root, 0)
	return t, nil
}

func (t *BTree[K, V]) atMaxCapacity(n *Node[K, V]) bool    { return n.AtMaxCapacity(t.opts.maxKeys) }
func (t *BTree[K, V]) belowMinCapacity(n *Node[K, V]) bool { return n.BelowMinCapacity(t.opts.minKeys) }
func (t *BTree[K, V]) atMinCapacity(n *Node[K, V]) bool    { return n.AtMinCapacity(t.opts.minKeys) }

// Depth returns the current tree depth as of the most recently loaded root
// block visible to tx.
func (t *BTree[K, V]) Depth(tx Transaction) (uint8, error) {
	rb, err := t.cache.GetRoot(tx)
	if err != nil {
		return 0, err
	}
	return rb.GetDepth(), nil
}

// WithBTree runs fn with a tree handle over cache, mirroring the original
// driver's convenience wrapper. The handle is not restricted to reads;
// whether fn may mutate depends on the transaction it uses.
func WithBTree[K any, V any](ctx context.Context, cache Cache[K, V], ops KeyOps[K], tx Transaction, fn func(*BTree[K, V]) error, opts ...Option) error {
	t := New(cache, ops, opts...)
	return fn(t)
}

// WithBTreeState is WithBTree's counterpart for callers that already
// resolved the root block and want to avoid a second GetRoot call, e.g.
// batched mutations within one transaction.
func WithBTreeState[K any, V any](ctx context.Context, cache Cache[K, V], ops KeyOps[K], tx Transaction, rb *RootBlock[K, V], fn func(*BTree[K, V], *RootBlock[K, V]) error, opts ...Option) error {
	t := New(cache, ops, opts...)
	return fn(t, rb)
}

// Root returns the current root node, for callers (like the scan package)
// that need to walk the whole node tree rather than just its leaves.
func (t *BTree[K, V]) Root(tx Transaction) (*Node[K, V], error) {
	rb, err := t.cache.GetRoot(tx)
	if err != nil {
		return nil, err
	}
	return rb.GetRootNode(), nil
}

// Child returns the resident child at slot idx of parent, loading it from
// the cache if necessary. Exported for the same whole-tree-walk callers
// Root serves.
func (t *BTree[K, V]) Child(tx Transaction, parent *Node[K, V], idx int) (*Node[K, V], error) {
	return t.loadChild(tx, parent, idx)
}

// KeyOps exposes the tree's comparator for callers that need to reason
// about key ordering without duplicating it (e.g. scan's invariant checks).
func (t *BTree[K, V]) KeyOps() KeyOps[K] { return t.ops }

// loadChild returns the resident child at slot idx of parent, loading it
// from the cache and linking the back-pointer if it isn't resident yet.
// This is the atomic get-or-reserve child fetch spec's lookup engine
// relies on to avoid duplicate in-memory copies of a stable extent.
func (t *BTree[K, V]) loadChild(tx Transaction, parent *Node[K, V], idx int) (*Node[K, V], error) {
	if p := parent.childPtrs[idx]; p != nil {
		return p, nil
	}
	kind := ExtentInternal
	depth := parent.meta.Depth
	if depth == 1 {
		kind = ExtentLeaf
	}
	child, err := t.cache.GetAbsentExtent(tx, parent.children[idx], kind)
	if err != nil {
		return nil, err
	}
	if child.IsStable() && child.inExtentChecksum != 0 && child.lastCommittedCRC != 0 &&
		child.inExtentChecksum != child.lastCommittedCRC {
		t.impossible("checksum mismatch loading child at paddr %v", child.Paddr())
	}
	linkChild(parent, child, idx)
	return child, nil
}
