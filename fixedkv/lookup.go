package fixedkv

import "context"

// Lookup returns the value stored under key, or ErrKeyNotFound.
func (t *BTree[K, V]) Lookup(ctx context.Context, tx Transaction, key K) (V, error) {
	var zero V
	it, err := t.LowerBound(tx, key)
	if err != nil {
		return zero, err
	}
	if !it.Valid() || t.ops.Compare(it.GetKey(), key) != 0 {
		return zero, ErrKeyNotFound
	}
	return it.GetVal(), nil
}

// MappedSpaceVisitor is invoked once per leaf entry during a FullScan-style
// traversal (see the scan package), mirroring mapped_space_visitor_t.
type MappedSpaceVisitor[K any, V any] func(key K, value V, leafPaddr Paddr, depth uint8) error

// Walk visits every entry from it to the end of the tree in order,
// invoking visit for each. It is the mechanism scan.FullScan builds on.
func (t *BTree[K, V]) Walk(tx Transaction, it *Iterator[K, V], visit MappedSpaceVisitor[K, V]) error {
	for it.Valid() {
		leaf, idx := it.GetCursor()
		if err := visit(leaf.KeyAt(idx), leaf.ValueAt(idx), leaf.Paddr(), leaf.Meta().Depth); err != nil {
			return err
		}
		if err := it.Next(tx); err != nil {
			return err
		}
	}
	return nil
}
