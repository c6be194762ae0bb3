package lba

import (
	"context"

	"github.com/xelexin/fixedkv/fixedkv"
)

// Manager wraps a fixedkv.BTree instantiated for Laddr/Mapping with the
// domain operations an object store's block allocator needs: point lookup,
// range-adjacency lookup and mutation, mirroring how the original engine's
// LBA manager sits on top of FixedKVBtree.
type Manager struct {
	tree *fixedkv.BTree[Laddr, Mapping]
}

// Mkfs creates a brand-new, empty LBA tree.
func Mkfs(ctx context.Context, tx fixedkv.Transaction, cache fixedkv.Cache[Laddr, Mapping], opts ...fixedkv.Option) (*Manager, error) {
	tree, err := fixedkv.Mkfs[Laddr, Mapping](ctx, tx, cache, Ops(), opts...)
	if err != nil {
		return nil, err
	}
	return &Manager{tree: tree}, nil
}

// New wraps an existing cache (and therefore an existing LBA tree) as a
// Manager handle.
func New(cache fixedkv.Cache[Laddr, Mapping], opts ...fixedkv.Option) *Manager {
	return &Manager{tree: fixedkv.New[Laddr, Mapping](cache, Ops(), opts...)}
}

// Resolve returns the mapping for a single logical block address.
func (m *Manager) Resolve(ctx context.Context, tx fixedkv.Transaction, l Laddr) (Mapping, error) {
	return m.tree.Lookup(ctx, tx, l)
}

// Map records a new logical-to-physical mapping. ok is false without error
// if l is already mapped (the caller must Remove or Update explicitly).
func (m *Manager) Map(ctx context.Context, tx fixedkv.Transaction, l Laddr, mapping Mapping) (bool, error) {
	return m.tree.Insert(ctx, tx, l, mapping)
}

// Remap overwrites the mapping stored at an already-mapped logical address,
// e.g. after a rewrite relocates the backing extent.
func (m *Manager) Remap(ctx context.Context, tx fixedkv.Transaction, l Laddr, mapping Mapping) error {
	return m.tree.Update(ctx, tx, l, mapping)
}

// Unmap removes the mapping at l. ok is false without error if l was
// already unmapped.
func (m *Manager) Unmap(ctx context.Context, tx fixedkv.Transaction, l Laddr) (bool, error) {
	return m.tree.Remove(ctx, tx, l)
}

// ResolveRange finds every mapping overlapping [start, start+length),
// mirroring the original LBA manager's get_mappings for a scatter/gather
// read. A mapping starting before start can still cover it, so the walk
// starts from UpperBoundRight(start) — which is that covering predecessor
// when one exists, or lower_bound(start) otherwise — and continues forward
// while entries start before the range's end.
func (m *Manager) ResolveRange(ctx context.Context, tx fixedkv.Transaction, start Laddr, length uint32) ([]Mapping, error) {
	end := start + Laddr(length)

	it, err := m.tree.UpperBoundRight(tx, start, mappingLength, laddrAdd)
	if err != nil {
		return nil, err
	}

	var out []Mapping
	for it.Valid() && it.GetKey() < end {
		out = append(out, it.GetVal())
		if err := it.Next(tx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Depth returns the LBA tree's current depth.
func (m *Manager) Depth(tx fixedkv.Transaction) (uint8, error) {
	return m.tree.Depth(tx)
}

// Tree exposes the underlying generic tree for callers (like scan) that
// need the raw iterator/walk surface rather than the domain-specific API.
func (m *Manager) Tree() *fixedkv.BTree[Laddr, Mapping] { return m.tree }
