// Package scan supplements the core engine's mapped_space_visitor with a
// whole-tree walk and consistency checker, mirroring check_node and
// check_child_trackers from the original engine's debug/test support: not
// on any production code path, but exercised by tests to assert the
// structural invariants the tree is supposed to maintain.
package scan

import (
	"context"
	"fmt"

	"github.com/xelexin/fixedkv/fixedkv"
)

// VisitedExtent records one node visited during a FullScan: enough to
// reconstruct the physical layout a rewrite pass or an offline fsck would
// need, without exposing the engine's internal Node representation.
type VisitedExtent[K any] struct {
	Paddr  fixedkv.Paddr
	Begin  K
	End    K
	Depth  uint8
	Leaf   bool
	NumKey int
}

// FullScan walks every node in the tree, root to leaves, depth-first,
// recording one VisitedExtent per node. It is the whole-tree counterpart to
// fixedkv.BTree.Walk, which only ever visits leaf entries.
func FullScan[K any, V any](ctx context.Context, tx fixedkv.Transaction, tree *fixedkv.BTree[K, V]) ([]VisitedExtent[K], error) {
	root, err := tree.Root(tx)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	var out []VisitedExtent[K]
	if err := walkNode(ctx, tx, tree, root, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkNode[K any, V any](ctx context.Context, tx fixedkv.Transaction, tree *fixedkv.BTree[K, V], n *fixedkv.Node[K, V], out *[]VisitedExtent[K]) error {
	meta := n.Meta()
	*out = append(*out, VisitedExtent[K]{
		Paddr:  n.Paddr(),
		Begin:  meta.Begin,
		End:    meta.End,
		Depth:  meta.Depth,
		Leaf:   n.IsLeaf(),
		NumKey: n.Size(),
	})
	if n.IsLeaf() {
		return nil
	}
	for i := 0; i <= n.Size(); i++ {
		child, err := tree.Child(tx, n, i)
		if err != nil {
			return err
		}
		if err := walkNode(ctx, tx, tree, child, out); err != nil {
			return err
		}
	}
	return nil
}

// CheckInvariants asserts spec.md's §8 structural invariants (Range,
// Depth-monotone, Pivot-correctness, Back-pointer soundness) over a full
// walk of the tree, returning the first violation found.
func CheckInvariants[K any, V any](ctx context.Context, tx fixedkv.Transaction, tree *fixedkv.BTree[K, V]) error {
	root, err := tree.Root(tx)
	if err != nil {
		return err
	}
	if root == nil {
		return nil
	}
	ops := tree.KeyOps()
	rootDepth := root.Meta().Depth
	return checkNode(ctx, tx, tree, ops, root, rootDepth)
}

func checkNode[K any, V any](ctx context.Context, tx fixedkv.Transaction, tree *fixedkv.BTree[K, V], ops fixedkv.KeyOps[K], n *fixedkv.Node[K, V], expectDepth uint8) error {
	meta := n.Meta()
	if ops.Compare(meta.Begin, meta.End) >= 0 {
		return fmt.Errorf("scan: node at %v has begin >= end", n.Paddr())
	}
	if meta.Depth != expectDepth {
		return fmt.Errorf("scan: node at %v has depth %d, expected %d", n.Paddr(), meta.Depth, expectDepth)
	}

	if n.IsLeaf() {
		for i := 0; i < n.Size(); i++ {
			k := n.KeyAt(i)
			if ops.Compare(k, meta.Begin) < 0 || ops.Compare(k, meta.End) >= 0 {
				return fmt.Errorf("scan: leaf %v key %v out of range [%v,%v)", n.Paddr(), k, meta.Begin, meta.End)
			}
			if i > 0 && ops.Compare(n.KeyAt(i-1), k) >= 0 {
				return fmt.Errorf("scan: leaf %v keys not strictly increasing at %d", n.Paddr(), i)
			}
		}
		return nil
	}

	for i := 0; i < n.Size(); i++ {
		if i > 0 && ops.Compare(n.KeyAt(i-1), n.KeyAt(i)) >= 0 {
			return fmt.Errorf("scan: internal %v slot keys not strictly increasing at %d", n.Paddr(), i)
		}
	}

	for i := 0; i <= n.Size(); i++ {
		child, err := tree.Child(tx, n, i)
		if err != nil {
			return err
		}
		childMeta := child.Meta()

		wantBegin := meta.Begin
		if i > 0 {
			wantBegin = n.KeyAt(i - 1)
		}
		wantEnd := meta.End
		if i < n.Size() {
			wantEnd = n.KeyAt(i)
		}
		if ops.Compare(childMeta.Begin, wantBegin) != 0 {
			return fmt.Errorf("scan: child %v begin %v != expected %v", child.Paddr(), childMeta.Begin, wantBegin)
		}
		if ops.Compare(childMeta.End, wantEnd) != 0 {
			return fmt.Errorf("scan: child %v end %v != expected %v", child.Paddr(), childMeta.End, wantEnd)
		}

		if p := child.PeekParentNode(); p != nil && p != n {
			stable := fixedkv.GetStableForKey(ops, p, childMeta.Begin)
			if stable != n {
				return fmt.Errorf("scan: child %v back-pointer does not resolve to a stable projection of its parent", child.Paddr())
			}
		}

		if err := checkNode(ctx, tx, tree, ops, child, expectDepth-1); err != nil {
			return err
		}
	}
	return nil
}
