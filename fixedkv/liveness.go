package fixedkv

import "context"

// HydrateExtent finishes setting up a node a Cache implementation has just
// materialized from a physical decode: it fixes the extent's state as
// Stable and records the checksum pair the engine asserts on the next
// load. A Cache implementation calls this once per physical decode, never
// the engine itself. It says nothing about whether the extent is still
// reachable from the live tree — see InitCachedExtent for that.
func HydrateExtent[K any, V any](n *Node[K, V], paddr Paddr, kind ExtentKind, checksum uint64) {
	n.paddr = paddr
	n.state = stateStable
	n.inExtentChecksum = checksum
	n.lastCommittedCRC = checksum
	n.leaf = kind == ExtentLeaf
}

// InitCachedExtent reports whether e is still part of the live tree
// reachable from tx's current root. If e is an internal node, it performs
// a lower_bound at e's begin key and checks whether the ancestor slot at
// e's depth is pointer-equal to e. If e is a leaf, it checks whether the
// resulting leaf is e. A Cache implementation calls this after rehydrating
// a non-logical extent to decide whether the extent is worth keeping
// resident at all.
func (t *BTree[K, V]) InitCachedExtent(ctx context.Context, tx Transaction, e *Node[K, V]) (bool, error) {
	it, err := t.LowerBound(tx, e.Meta().Begin)
	if err != nil {
		return false, err
	}
	if e.IsLeaf() {
		leaf, _ := it.GetCursor()
		return leaf == e, nil
	}
	for _, entry := range it.stack {
		if entry.node.Meta().Depth == e.Meta().Depth {
			return entry.node == e, nil
		}
	}
	return false, nil
}

// reachableFromRoot walks n's back-pointer chain via a partial iterator and
// confirms every ancestor slot along the way still points at the child
// beneath it, up to tx's current root. Unlike InitCachedExtent's fresh
// descent from the root, this trusts n's own linked parent chain, the way
// a weak handle is rechecked on use.
func (t *BTree[K, V]) reachableFromRoot(tx Transaction, n *Node[K, V]) (bool, error) {
	if !n.IsValid() {
		return false, nil
	}
	it := t.NewPartialIterator(n, 0)
	it.EnsureInternal()

	rb, err := t.cache.GetRoot(tx)
	if err != nil {
		return false, err
	}
	if len(it.stack) == 0 || it.stack[0].node != rb.GetRootNode() {
		return false, nil
	}
	for i := 0; i < len(it.stack)-1; i++ {
		parent := it.stack[i].node
		idx := it.stack[i].idx
		if idx < 0 || idx >= len(parent.childPtrs) || parent.childPtrs[idx] != it.stack[i+1].node {
			return false, nil
		}
	}
	return true, nil
}

// GetLeafIfLive reports whether leaf is still reachable from the tree's
// current root — used by garbage collection to confirm a cached leaf
// extent is worth rewriting before spending an allocation on it.
func (t *BTree[K, V]) GetLeafIfLive(ctx context.Context, tx Transaction, leaf *Node[K, V]) (bool, error) {
	return t.reachableFromRoot(tx, leaf)
}

// GetInternalIfLive is GetLeafIfLive's counterpart for an internal node.
func (t *BTree[K, V]) GetInternalIfLive(ctx context.Context, tx Transaction, node *Node[K, V]) (bool, error) {
	return t.reachableFromRoot(tx, node)
}

// RewriteExtent copies old into a freshly allocated extent of the same
// kind and re-points old's parent (or the root block, if old was the
// root) at the copy, then retires old. Used by garbage collection to move
// a cold extent without disturbing the tree's logical contents.
func (t *BTree[K, V]) RewriteExtent(ctx context.Context, tx Transaction, old *Node[K, V]) (*Node[K, V], error) {
	kind := ExtentLeaf
	if !old.IsLeaf() {
		kind = ExtentInternal
	}
	next, err := t.cache.AllocNewNonDataExtent(tx, kind, HintCold)
	if err != nil {
		return nil, err
	}
	next.leaf = old.leaf
	next.meta = old.meta
	next.keys = append([]K(nil), old.keys...)
	if old.IsLeaf() {
		next.values = append([]V(nil), old.values...)
	} else {
		next.children = append([]Paddr(nil), old.children...)
		next.childPtrs = append([]*Node[K, V](nil), old.childPtrs...)
		relinkChildren(next)
	}
	next.markDirty()

	if err := t.UpdateInternalMapping(ctx, tx, old, next); err != nil {
		return nil, err
	}
	if err := t.cache.RetireExtent(tx, old); err != nil {
		return nil, err
	}
	return next, nil
}

// UpdateInternalMapping re-points whatever references old (old's parent's
// child slot, or the root block if old had no parent) at replacement. A
// Stable parent is duplicated for write before its slot is touched — a
// Stable node is committed and effectively read-only, so the duplicate, not
// the original, gets the new slot — and the duplication cascades: since the
// duplicate is itself a new extent, whatever pointed at the old parent (its
// own parent's slot, or the root block) is updated the same way, one level
// at a time, all the way to the root. A pivot mismatch between old's slot
// and replacement's begin key is an "impossible" structural violation,
// never a recoverable error.
func (t *BTree[K, V]) UpdateInternalMapping(ctx context.Context, tx Transaction, old, replacement *Node[K, V]) error {
	parent := old.PeekParentNode()
	if parent == nil {
		rb, err := t.cache.GetRoot(tx)
		if err != nil {
			return err
		}
		if rb.GetRootNode() != old {
			t.impossible("update_internal_mapping: old extent has no parent and is not the root")
		}
		newRB, err := t.cache.DuplicateRootForWrite(tx, rb)
		if err != nil {
			return err
		}
		t.linker.LinkRoot(newRB, replacement, rb.GetDepth())
		return nil
	}

	idx := old.parentIdx
	if idx < 0 || idx >= len(parent.children) || parent.children[idx] != old.Paddr() {
		t.impossible("update_internal_mapping: parent slot %d does not reference old extent %v", idx, old.Paddr())
	}
	if idx > 0 && t.ops.Compare(parent.keys[idx-1], replacement.meta.Begin) != 0 {
		t.impossible("update_internal_mapping: pivot mismatch at slot %d", idx)
	}

	newParent, err := t.cache.DuplicateForWrite(tx, parent)
	if err != nil {
		return err
	}
	if newParent != parent {
		relinkChildren(newParent)
	}
	newParent.children[idx] = replacement.Paddr()
	linkChild(newParent, replacement, idx)
	newParent.markDirty()

	if newParent != parent {
		return t.UpdateInternalMapping(ctx, tx, parent, newParent)
	}
	return nil
}
