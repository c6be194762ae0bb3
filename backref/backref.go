// Package backref instantiates the core engine as the back-reference map:
// keys are physical addresses, values name the logical address and extent
// that currently owns that physical extent, letting a GC pass answer "who
// points at this paddr" without a reverse scan of the LBA tree, matching
// crimson/os/seastore's backref manager use of FixedKVBtree.
package backref

import (
	"github.com/xelexin/fixedkv/fixedkv"
)

// ExtentKind mirrors the owning extent's type for GC bookkeeping: whether
// the physical extent named by the key is itself LBA-tree structure or
// backref-tree structure, or a leaf data block.
type ExtentKind uint8

const (
	KindUnknown ExtentKind = iota
	KindLBALeaf
	KindLBAInternal
	KindBackrefLeaf
	KindBackrefInternal
	KindData
)

// Mapping is the backref tree's value type: the logical address and length
// of the region that currently maps to the physical extent named by the
// key, and what kind of extent it is. Unlike lba.Mapping, this value holds
// no physical address of its own, so it does not implement
// fixedkv.Relocatable — there is nothing here to relocate.
type Mapping struct {
	Laddr  uint64
	Length uint32
	Kind   ExtentKind
}

// Ops is the KeyOps instance for Paddr as the backref tree's key type,
// reusing the engine's own generic uint64 comparator since Paddr's
// underlying type is uint64.
func Ops() fixedkv.KeyOps[fixedkv.Paddr] {
	return fixedkv.Uint64Ops[fixedkv.Paddr]()
}
