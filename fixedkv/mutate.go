package fixedkv

import "context"

// Insert stores (key, value) if key is absent. On a duplicate key it is a
// no-op — not an error — returning ok=false, matching spec's edge case for
// duplicate insert.
func (t *BTree[K, V]) Insert(ctx context.Context, tx Transaction, key K, value V) (ok bool, err error) {
	if tx.IsWeak() {
		return false, ErrWeakReadOnly
	}
	rb, err := t.cache.GetRoot(tx)
	if err != nil {
		return false, err
	}

	present, err := t.keyPresent(tx, rb.GetRootNode(), key)
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}

	root, err := t.cache.DuplicateForWrite(tx, rb.GetRootNode())
	if err != nil {
		return false, err
	}
	relinkChildren(root)

	depth := rb.GetDepth()
	if t.atMaxCapacity(root) {
		if depth+1 > t.opts.maxDepth {
			t.impossible("insert: tree depth would exceed MaxDepth %d", t.opts.maxDepth)
		}
		newRoot, err := t.growRoot(tx, root)
		if err != nil {
			return false, err
		}
		root = newRoot
		depth++
	}

	cur := root
	for !cur.IsLeaf() {
		idx := cur.ChildIndexFor(t.ops, key)
		child, err := t.loadChild(tx, cur, idx)
		if err != nil {
			return false, err
		}
		child, err = t.cache.DuplicateForWrite(tx, child)
		if err != nil {
			return false, err
		}
		relinkChildren(child)
		linkChild(cur, child, idx)
		cur.children[idx] = child.Paddr()

		if t.atMaxCapacity(child) {
			if err := t.handleSplit(tx, cur, idx, child); err != nil {
				return false, err
			}
			idx = cur.ChildIndexFor(t.ops, key)
			child, err = t.loadChild(tx, cur, idx)
			if err != nil {
				return false, err
			}
		}
		cur = child
	}

	idx := cur.LowerBound(t.ops, key)
	if idx < cur.Size() && t.ops.Compare(cur.KeyAt(idx), key) == 0 {
		t.impossible("insert: key confirmed absent on read-only descent but present in target leaf")
	}
	cur.Insert(idx, key, value)
	tx.Stats().recordInsert()
	return true, t.commitRoot(tx, rb, root, depth)
}

// Update overwrites the value stored under an existing key. Returns
// ErrKeyNotFound if key is absent.
func (t *BTree[K, V]) Update(ctx context.Context, tx Transaction, key K, value V) error {
	if tx.IsWeak() {
		return ErrWeakReadOnly
	}
	rb, err := t.cache.GetRoot(tx)
	if err != nil {
		return err
	}
	root, err := t.cache.DuplicateForWrite(tx, rb.GetRootNode())
	if err != nil {
		return err
	}
	relinkChildren(root)

	cur := root
	for !cur.IsLeaf() {
		idx := cur.ChildIndexFor(t.ops, key)
		child, err := t.loadChild(tx, cur, idx)
		if err != nil {
			return err
		}
		child, err = t.cache.DuplicateForWrite(tx, child)
		if err != nil {
			return err
		}
		relinkChildren(child)
		linkChild(cur, child, idx)
		cur.children[idx] = child.Paddr()
		cur = child
	}
	idx := cur.Find(t.ops, key)
	if idx < 0 {
		return ErrKeyNotFound
	}
	cur.Update(idx, value)
	tx.Stats().recordUpdate()
	return t.commitRoot(tx, rb, root, rb.GetDepth())
}

// Remove deletes key if present. Returns ok=false, not an error, if key is
// absent. Presence is confirmed with a read-only descent before any node is
// duplicated or merged, so a miss that happens to route through an
// already-minimal node is a pure no-op rather than an observable
// restructuring.
func (t *BTree[K, V]) Remove(ctx context.Context, tx Transaction, key K) (ok bool, err error) {
	if tx.IsWeak() {
		return false, ErrWeakReadOnly
	}
	rb, err := t.cache.GetRoot(tx)
	if err != nil {
		return false, err
	}

	present, err := t.keyPresent(tx, rb.GetRootNode(), key)
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}

	root, err := t.cache.DuplicateForWrite(tx, rb.GetRootNode())
	if err != nil {
		return false, err
	}
	relinkChildren(root)
	depth := rb.GetDepth()

	cur := root
	for !cur.IsLeaf() {
		idx := cur.ChildIndexFor(t.ops, key)
		child, err := t.loadChild(tx, cur, idx)
		if err != nil {
			return false, err
		}
		child, err = t.cache.DuplicateForWrite(tx, child)
		if err != nil {
			return false, err
		}
		relinkChildren(child)
		linkChild(cur, child, idx)
		cur.children[idx] = child.Paddr()

		if t.belowMinCapacityAfterRemoval(child) {
			if err := t.handleMerge(tx, cur, idx); err != nil {
				return false, err
			}
			idx = cur.ChildIndexFor(t.ops, key)
			child, err = t.loadChild(tx, cur, idx)
			if err != nil {
				return false, err
			}
		}
		cur = child
	}

	idx := cur.Find(t.ops, key)
	if idx < 0 {
		t.impossible("remove: key confirmed present on read-only descent but absent from target leaf")
	}
	cur.Remove(idx)
	tx.Stats().recordErase()

	if !root.IsLeaf() && root.Size() == 0 {
		oldShell := root
		collapsed, err := t.loadChild(tx, root, 0)
		if err != nil {
			return false, err
		}
		collapsed.parent = nil
		root = collapsed
		if depth > 0 {
			depth--
		}
		if err := t.cache.RetireExtent(tx, oldShell); err != nil {
			// The new root is not committed: Remove returns the
			// retirement error before commitRoot runs.
			return false, err
		}
		tx.Stats().recordRootCollapse()
	}

	return true, t.commitRoot(tx, rb, root, depth)
}

func (t *BTree[K, V]) belowMinCapacityAfterRemoval(n *Node[K, V]) bool {
	return n.Size() <= t.opts.minKeys
}

// keyPresent performs a read-only descent to the leaf that would hold key,
// touching no node's write path — no duplication, no borrow or merge — so
// that Remove can tell a genuine no-op from a key that merely routes
// through an already-minimal node before committing to any restructuring.
func (t *BTree[K, V]) keyPresent(tx Transaction, root *Node[K, V], key K) (bool, error) {
	cur := root
	for !cur.IsLeaf() {
		idx := cur.ChildIndexFor(t.ops, key)
		child, err := t.loadChild(tx, cur, idx)
		if err != nil {
			return false, err
		}
		cur = child
	}
	return cur.Find(t.ops, key) >= 0, nil
}

// relinkChildren repairs weak back-pointers for an internal node's already
// resident children after it has been duplicated: the clone is a distinct
// object, so every loaded child must point at it, not at the original.
func relinkChildren[K any, V any](n *Node[K, V]) {
	if n.IsLeaf() {
		return
	}
	for i, c := range n.childPtrs {
		if c != nil {
			linkChild(n, c, i)
		}
	}
}

func (t *BTree[K, V]) commitRoot(tx Transaction, rb *RootBlock[K, V], root *Node[K, V], depth uint8) error {
	newRB, err := t.cache.DuplicateRootForWrite(tx, rb)
	if err != nil {
		return err
	}
	t.linker.LinkRoot(newRB, root, depth)
	return nil
}

// growRoot allocates a new internal root over the current (full) root,
// then immediately splits the old root as its sole child, so the caller
// always continues insertion into a root with spare capacity.
func (t *BTree[K, V]) growRoot(tx Transaction, oldRoot *Node[K, V]) (*Node[K, V], error) {
	newRoot, err := t.cache.AllocNewNonDataExtent(tx, ExtentInternal, HintNone)
	if err != nil {
		return nil, err
	}
	newRoot.children = []Paddr{oldRoot.Paddr()}
	newRoot.childPtrs = []*Node[K, V]{oldRoot}
	newRoot.meta = NodeMeta[K]{Begin: oldRoot.meta.Begin, End: oldRoot.meta.End, Depth: oldRoot.meta.Depth + 1}
	linkChild(newRoot, oldRoot, 0)
	if err := t.handleSplit(tx, newRoot, 0, oldRoot); err != nil {
		return nil, err
	}
	tx.Stats().recordRootGrowth()
	return newRoot, nil
}

// handleSplit splits the full child at idx into two nodes, inserting the
// new separator and right sibling into parent. Mirrors handle_split /
// make_split_children.
func (t *BTree[K, V]) handleSplit(tx Transaction, parent *Node[K, V], idx int, child *Node[K, V]) error {
	kind := ExtentLeaf
	if !child.IsLeaf() {
		kind = ExtentInternal
	}
	right, err := t.cache.AllocNewNonDataExtent(tx, kind, HintNone)
	if err != nil {
		return err
	}
	right.leaf = child.leaf

	mid := len(child.keys) / 2
	var sep K

	if child.IsLeaf() {
		sep = child.keys[mid]
		right.keys = append([]K(nil), child.keys[mid:]...)
		right.values = append([]V(nil), child.values[mid:]...)
		child.keys = child.keys[:mid]
		child.values = child.values[:mid]
	} else {
		sep = child.keys[mid]
		right.keys = append([]K(nil), child.keys[mid+1:]...)
		right.children = append([]Paddr(nil), child.children[mid+1:]...)
		right.childPtrs = append([]*Node[K, V](nil), child.childPtrs[mid+1:]...)
		child.keys = child.keys[:mid]
		child.children = child.children[:mid+1]
		child.childPtrs = child.childPtrs[:mid+1]
		relinkChildren(right)
	}
	child.markDirty()
	right.markDirty()

	origEnd := child.meta.End
	child.meta = NodeMeta[K]{Begin: child.meta.Begin, End: sep, Depth: child.meta.Depth}
	right.meta = NodeMeta[K]{Begin: sep, End: origEnd, Depth: child.meta.Depth}

	parent.InsertChild(idx, sep, right.Paddr(), right)
	tx.Stats().recordSplit()
	return nil
}

// handleMerge repairs an underflowing child at idx by borrowing from a
// sibling with spare capacity, or merging with one otherwise. Mirrors
// handle_merge / merge_level.
func (t *BTree[K, V]) handleMerge(tx Transaction, parent *Node[K, V], idx int) error {
	child, err := t.loadChild(tx, parent, idx)
	if err != nil {
		return err
	}

	if idx > 0 {
		left, err := t.loadChild(tx, parent, idx-1)
		if err != nil {
			return err
		}
		left, err = t.cache.DuplicateForWrite(tx, left)
		if err != nil {
			return err
		}
		relinkChildren(left)
		linkChild(parent, left, idx-1)
		parent.children[idx-1] = left.Paddr()

		if left.Size() > t.opts.minKeys {
			t.borrowFromLeft(parent, idx-1, left, child)
			tx.Stats().recordBalance()
			return nil
		}
	}

	if idx < len(parent.children)-1 {
		right, err := t.loadChild(tx, parent, idx+1)
		if err != nil {
			return err
		}
		right, err = t.cache.DuplicateForWrite(tx, right)
		if err != nil {
			return err
		}
		relinkChildren(right)
		linkChild(parent, right, idx+1)
		parent.children[idx+1] = right.Paddr()

		if right.Size() > t.opts.minKeys {
			t.borrowFromRight(parent, idx, child, right)
			tx.Stats().recordBalance()
			return nil
		}

		t.mergeInto(parent, idx, child, right)
		if err := t.cache.RetireExtent(tx, right); err != nil {
			return err
		}
		tx.Stats().recordMerge()
		return nil
	}

	// No right sibling: merge with left (guaranteed to exist, since a
	// node with no right sibling and idx==0 would mean parent has a
	// single child, which the root-collapse path handles separately).
	left, err := t.loadChild(tx, parent, idx-1)
	if err != nil {
		return err
	}
	t.mergeInto(parent, idx-1, left, child)
	if err := t.cache.RetireExtent(tx, child); err != nil {
		return err
	}
	tx.Stats().recordMerge()
	return nil
}

// borrowFromLeft moves left's rightmost entry into right, keeping the
// parent separator (and both siblings' meta.Begin/End) in sync so pivot
// correctness holds afterward.
func (t *BTree[K, V]) borrowFromLeft(parent *Node[K, V], leftIdx int, left, right *Node[K, V]) {
	sepIdx := leftIdx
	var newSep K
	if right.IsLeaf() {
		lastIdx := left.Size() - 1
		k, v := left.keys[lastIdx], left.values[lastIdx]
		left.Remove(lastIdx)
		right.Insert(0, k, v)
		newSep = right.keys[0]
	} else {
		lastIdx := len(left.children) - 1
		movedChild := left.children[lastIdx]
		movedPtr := left.childPtrs[lastIdx]
		k := left.keys[len(left.keys)-1]
		left.keys = left.keys[:len(left.keys)-1]
		left.children = left.children[:lastIdx]
		left.childPtrs = left.childPtrs[:lastIdx]
		left.markDirty()

		right.keys = insertAtK(right.keys, 0, parent.keys[sepIdx])
		right.children = insertAtP(right.children, 0, movedChild)
		right.childPtrs = insertAtN(right.childPtrs, 0, movedPtr)
		right.markDirty()
		relinkChildren(right)
		newSep = k
	}
	parent.Replace(sepIdx, newSep)
	left.meta.End = newSep
	right.meta.Begin = newSep
}

// borrowFromRight is borrowFromLeft's mirror image.
func (t *BTree[K, V]) borrowFromRight(parent *Node[K, V], leftIdx int, left, right *Node[K, V]) {
	sepIdx := leftIdx
	var newSep K
	if left.IsLeaf() {
		k, v := right.keys[0], right.values[0]
		right.Remove(0)
		left.Insert(left.Size(), k, v)
		newSep = right.keys[0]
	} else {
		movedChild := right.children[0]
		movedPtr := right.childPtrs[0]
		k := right.keys[0]
		right.keys = right.keys[1:]
		right.children = right.children[1:]
		right.childPtrs = right.childPtrs[1:]
		right.markDirty()
		relinkChildren(right)

		left.keys = append(left.keys, parent.keys[sepIdx])
		left.children = append(left.children, movedChild)
		left.childPtrs = append(left.childPtrs, movedPtr)
		left.markDirty()
		relinkChildren(left)
		newSep = k
	}
	parent.Replace(sepIdx, newSep)
	left.meta.End = newSep
	right.meta.Begin = newSep
}

// mergeInto folds right into left, pulling down the separator at sepIdx
// for internal nodes, and removes the separator/right slot from parent.
func (t *BTree[K, V]) mergeInto(parent *Node[K, V], sepIdx int, left, right *Node[K, V]) {
	if left.IsLeaf() {
		left.keys = append(left.keys, right.keys...)
		left.values = append(left.values, right.values...)
	} else {
		left.keys = append(left.keys, parent.keys[sepIdx])
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)
		left.childPtrs = append(left.childPtrs, right.childPtrs...)
		relinkChildren(left)
	}
	left.meta.End = right.meta.End
	left.markDirty()
	parent.RemoveSeparator(sepIdx)
}
