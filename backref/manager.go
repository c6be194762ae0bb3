package backref

import (
	"context"

	"github.com/xelexin/fixedkv/fixedkv"
)

// Manager wraps a fixedkv.BTree instantiated for Paddr/Mapping with the
// domain operations a rewrite/GC pass needs: given a physical extent,
// find who currently owns it.
type Manager struct {
	tree *fixedkv.BTree[fixedkv.Paddr, Mapping]
}

// Mkfs creates a brand-new, empty backref tree.
func Mkfs(ctx context.Context, tx fixedkv.Transaction, cache fixedkv.Cache[fixedkv.Paddr, Mapping], opts ...fixedkv.Option) (*Manager, error) {
	tree, err := fixedkv.Mkfs[fixedkv.Paddr, Mapping](ctx, tx, cache, Ops(), opts...)
	if err != nil {
		return nil, err
	}
	return &Manager{tree: tree}, nil
}

// New wraps an existing cache as a Manager handle.
func New(cache fixedkv.Cache[fixedkv.Paddr, Mapping], opts ...fixedkv.Option) *Manager {
	return &Manager{tree: fixedkv.New[fixedkv.Paddr, Mapping](cache, Ops(), opts...)}
}

// Owner returns the current owner of the physical extent at paddr.
func (m *Manager) Owner(ctx context.Context, tx fixedkv.Transaction, paddr fixedkv.Paddr) (Mapping, error) {
	return m.tree.Lookup(ctx, tx, paddr)
}

// Record inserts a new backref entry for a freshly allocated physical
// extent. ok is false without error if paddr is already recorded.
func (m *Manager) Record(ctx context.Context, tx fixedkv.Transaction, paddr fixedkv.Paddr, mapping Mapping) (bool, error) {
	return m.tree.Insert(ctx, tx, paddr, mapping)
}

// Retarget updates the owner recorded for paddr, used when a rewrite moves
// the LBA/backref-internal node that used to live there and this entry
// needs to describe the new occupant instead.
func (m *Manager) Retarget(ctx context.Context, tx fixedkv.Transaction, paddr fixedkv.Paddr, mapping Mapping) error {
	return m.tree.Update(ctx, tx, paddr, mapping)
}

// Forget removes the backref entry for paddr, e.g. once its extent has been
// retired and its physical address returned to the allocator.
func (m *Manager) Forget(ctx context.Context, tx fixedkv.Transaction, paddr fixedkv.Paddr) (bool, error) {
	return m.tree.Remove(ctx, tx, paddr)
}

// Tree exposes the underlying generic tree for callers (like scan) that
// need the raw iterator/walk surface.
func (m *Manager) Tree() *fixedkv.BTree[fixedkv.Paddr, Mapping] { return m.tree }
