package fixedkv

import "errors"

// ErrIteratorInvalid is returned by Next on an iterator that has walked
// past either end of the tree, and by Prev on an iterator with no path.
// GetKey and GetVal return no error; call Valid first.
var ErrIteratorInvalid = errors.New("fixedkv: iterator not positioned on an entry")

type pathEntry[K any, V any] struct {
	node *Node[K, V]
	idx  int
}

// Iterator walks a tree's leaves in key order. It may be constructed
// "full" (Begin/End/Lookup, with the whole root-to-leaf path resident from
// the start) or "partial" (NewPartialIterator, starting from an
// already-resident leaf with no ancestors loaded); EnsureInternal bridges
// the two by lazily populating ancestors the first time Next or Prev is
// called, like the original engine's node_position_t.
type Iterator[K any, V any] struct {
	t       *BTree[K, V]
	stack   []pathEntry[K, V]
	partial bool
	atEnd   bool
}

// Begin returns an iterator positioned at the first entry in the tree.
func (t *BTree[K, V]) Begin(tx Transaction) (*Iterator[K, V], error) {
	rb, err := t.cache.GetRoot(tx)
	if err != nil {
		return nil, err
	}
	return t.descend(tx, rb.GetRootNode(), func(n *Node[K, V]) int { return 0 })
}

// End returns an iterator positioned one-past the last entry.
func (t *BTree[K, V]) End(tx Transaction) (*Iterator[K, V], error) {
	it, err := t.Begin(tx)
	if err != nil {
		return nil, err
	}
	it.atEnd = true
	return it, nil
}

// descend walks from root to leaf, choosing a child slot at each level via
// pick, and returns a full iterator positioned at the resulting leaf index
// (also chosen by pick applied to the leaf). A leaf index one past the
// leaf's last entry is moved on to the next leaf, or to the end.
func (t *BTree[K, V]) descend(tx Transaction, root *Node[K, V], pick func(*Node[K, V]) int) (*Iterator[K, V], error) {
	it := &Iterator[K, V]{t: t}
	n := root
	for {
		idx := pick(n)
		it.stack = append(it.stack, pathEntry[K, V]{node: n, idx: idx})
		if n.IsLeaf() {
			if idx >= n.Size() {
				if err := it.handleBoundary(tx, +1); err != nil {
					return nil, err
				}
			}
			return it, nil
		}
		childIdx := idx
		if childIdx >= len(n.children) {
			childIdx = len(n.children) - 1
		}
		child, err := t.loadChild(tx, n, childIdx)
		if err != nil {
			return nil, err
		}
		n = child
	}
}

// LowerBound returns an iterator at the first entry with key >= key.
func (t *BTree[K, V]) LowerBound(tx Transaction, key K) (*Iterator[K, V], error) {
	rb, err := t.cache.GetRoot(tx)
	if err != nil {
		return nil, err
	}
	return t.descend(tx, rb.GetRootNode(), func(n *Node[K, V]) int {
		if n.IsLeaf() {
			return n.LowerBound(t.ops, key)
		}
		return n.ChildIndexFor(t.ops, key)
	})
}

// UpperBound returns an iterator at the first entry with key > key.
func (t *BTree[K, V]) UpperBound(tx Transaction, key K) (*Iterator[K, V], error) {
	rb, err := t.cache.GetRoot(tx)
	if err != nil {
		return nil, err
	}
	return t.descend(tx, rb.GetRootNode(), func(n *Node[K, V]) int {
		if n.IsLeaf() {
			return n.UpperBound(t.ops, key)
		}
		return n.ChildIndexFor(t.ops, key)
	})
}

// UpperBoundRight returns an iterator at the entry whose value range
// [key(e), key(e)+len(value(e))) covers key, for value types V whose
// occupied range extends past a single point (used by the LBA mapping,
// where a mapping's Len matters for adjacency queries). It first computes
// lower_bound(key); if that entry's key is not an exact match, it is
// lower_bound(key)'s *predecessor* whose range can possibly cover key (any
// entry's range starts no later than its own key, so only a strictly
// smaller key can extend across key) — so the predecessor is checked and
// returned instead when it does.
func (t *BTree[K, V]) UpperBoundRight(tx Transaction, key K, length func(V) K, add func(K, K) K) (*Iterator[K, V], error) {
	it, err := t.LowerBound(tx, key)
	if err != nil {
		return nil, err
	}
	if it.Valid() && t.ops.Compare(it.GetKey(), key) == 0 {
		return it, nil
	}

	pred := it.clone()
	if err := pred.Prev(tx); err != nil {
		return nil, err
	}
	if pred.Valid() {
		end := add(pred.GetKey(), length(pred.GetVal()))
		if t.ops.Compare(end, key) > 0 {
			return pred, nil
		}
	}
	return it, nil
}

// clone returns an independent copy of it: the returned iterator shares no
// mutable state, so advancing it does not disturb the original.
func (it *Iterator[K, V]) clone() *Iterator[K, V] {
	stack := make([]pathEntry[K, V], len(it.stack))
	copy(stack, it.stack)
	return &Iterator[K, V]{t: it.t, stack: stack, partial: it.partial, atEnd: it.atEnd}
}

// NewPartialIterator wraps an already-resident leaf (e.g. from
// GetLeafIfLive) as a partial iterator positioned at idx. Ancestors are
// not yet loaded; EnsureInternal populates them lazily.
func (t *BTree[K, V]) NewPartialIterator(leaf *Node[K, V], idx int) *Iterator[K, V] {
	return &Iterator[K, V]{t: t, partial: true, stack: []pathEntry[K, V]{{node: leaf, idx: idx}}}
}

// EnsureInternal walks parent back-pointers from the current leaf up to
// the root, building the full stack a partial iterator needs before it can
// cross a leaf boundary. Bottom-up, mirroring ensure_internal_bottom_up.
func (it *Iterator[K, V]) EnsureInternal() {
	if !it.partial {
		return
	}
	leaf := it.stack[0]
	var ancestors []pathEntry[K, V]
	child := leaf.node
	for p := child.PeekParentNode(); p != nil; p = child.PeekParentNode() {
		ancestors = append(ancestors, pathEntry[K, V]{node: p, idx: child.parentIdx})
		child = p
	}
	full := make([]pathEntry[K, V], 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		full = append(full, ancestors[i])
	}
	full = append(full, leaf)
	it.stack = full
	it.partial = false
}

// Valid reports whether the iterator is positioned on a real entry.
func (it *Iterator[K, V]) Valid() bool {
	if it.atEnd || len(it.stack) == 0 {
		return false
	}
	leaf := it.stack[len(it.stack)-1]
	return leaf.idx >= 0 && leaf.idx < leaf.node.Size()
}

// GetKey returns the key at the iterator's current position.
func (it *Iterator[K, V]) GetKey() K {
	leaf := it.stack[len(it.stack)-1]
	return leaf.node.KeyAt(leaf.idx)
}

// GetVal returns the value at the iterator's current position.
func (it *Iterator[K, V]) GetVal() V {
	leaf := it.stack[len(it.stack)-1]
	return leaf.node.ValueAt(leaf.idx)
}

// GetCursor returns the leaf node and index of the current position,
// for callers (like Walk) that need the leaf itself.
func (it *Iterator[K, V]) GetCursor() (*Node[K, V], int) {
	leaf := it.stack[len(it.stack)-1]
	return leaf.node, leaf.idx
}

// Next advances the iterator by one entry, crossing leaf boundaries via
// handleBoundary as needed.
func (it *Iterator[K, V]) Next(tx Transaction) error {
	if it.atEnd {
		return ErrIteratorInvalid
	}
	it.EnsureInternal()
	it.stack[len(it.stack)-1].idx++
	return it.handleBoundary(tx, +1)
}

// Prev moves the iterator back by one entry.
func (it *Iterator[K, V]) Prev(tx Transaction) error {
	it.EnsureInternal()
	if len(it.stack) == 0 {
		return ErrIteratorInvalid
	}
	it.atEnd = false
	it.stack[len(it.stack)-1].idx--
	return it.handleBoundary(tx, -1)
}

// maxIdx returns the largest valid idx for a path entry positioned at n: a
// key index for a leaf, a child-slot index for an internal node.
func maxIdx[K any, V any](n *Node[K, V]) int {
	if n.IsLeaf() {
		return n.Size() - 1
	}
	return len(n.children) - 1
}

// handleBoundary walks up the stack while the current level has run off
// its own bounds, then redescends on the far side, mirroring the original
// engine's at_boundary/handle_boundary pair.
func (it *Iterator[K, V]) handleBoundary(tx Transaction, dir int) error {
	level := len(it.stack) - 1
	for {
		e := it.stack[level]
		if dir > 0 && e.idx <= maxIdx(e.node) {
			break
		}
		if dir < 0 && e.idx >= 0 {
			break
		}
		if level == 0 {
			it.atEnd = true
			return nil
		}
		level--
		it.stack[level].idx += dir
	}
	it.stack = it.stack[:level+1]

	// Redescend from `level` down to a leaf, entering each child at the
	// boundary opposite dir.
	for {
		e := it.stack[len(it.stack)-1]
		if e.node.IsLeaf() {
			return nil
		}
		child, err := it.t.loadChild(tx, e.node, e.idx)
		if err != nil {
			return err
		}
		startIdx := 0
		if dir < 0 {
			startIdx = maxIdx(child)
		}
		it.stack = append(it.stack, pathEntry[K, V]{node: child, idx: startIdx})
	}
}
