// Package lba instantiates the core engine as the logical-to-physical
// address map: keys are logical block addresses, values carry a physical
// address encoded relative to the owning leaf, a length in blocks, and a
// checksum, matching spec.md §3's description of the LBA variant.
package lba

import (
	"fmt"

	"github.com/xelexin/fixedkv/fixedkv"
)

// Laddr is a logical block address, the LBA tree's key type.
type Laddr uint64

// NoLaddr is the sentinel for "no logical address", used as a zero value
// distinct from any real mapping.
const NoLaddr Laddr = ^Laddr(0)

// String renders l in hex for logs and debug output.
func (l Laddr) String() string {
	if l == NoLaddr {
		return "laddr(none)"
	}
	return fmt.Sprintf("laddr(%#x)", uint64(l))
}

// ExtentRef identifies the kind of extent an LBA mapping resolves to,
// mirroring the original engine's extent type tag on pin_t.
type ExtentRef uint8

const (
	RefUnknown ExtentRef = iota
	RefData
	RefPhysicalNode
	RefIndirect
)

// Mapping is the LBA tree's value type: a physical address (encoded
// relative to the owning leaf, absolute on read), a length in blocks, a
// checksum of the referenced extent's content, and a reference count for
// clone/dedup bookkeeping.
//
// PhysAddr is stored as an *offset from the owning leaf's paddr* — see
// Relocate — so that copying a leaf's raw bytes elsewhere (a rewrite) never
// requires rewriting every value inside it.
type Mapping struct {
	PhysAddr fixedkv.Paddr
	Length   uint32
	Checksum uint32
	RefCount uint32
	Kind     ExtentRef
}

var _ fixedkv.Relocatable[Mapping] = Mapping{}

// Relocate materializes PhysAddr as an absolute address by adding the
// owning leaf's own paddr, per spec.md §3's "relative to the leaf's own
// physical address" contract. Non-data mappings (indirect / physical-node)
// already carry an absolute address and are returned unchanged.
func (m Mapping) Relocate(leaf fixedkv.Paddr) Mapping {
	if m.Kind != RefData {
		return m
	}
	out := m
	out.PhysAddr = m.PhysAddr + leaf
	return out
}

// Ops is the KeyOps instance for Laddr: numeric order, with 0 and NoLaddr
// as the sentinel bounds.
func Ops() fixedkv.KeyOps[Laddr] {
	return laddrOps{}
}

type laddrOps struct{}

func (laddrOps) Compare(a, b Laddr) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (laddrOps) Min() Laddr { return 0 }
func (laddrOps) Max() Laddr { return NoLaddr }

// laddrAdd and mappingLength are the UpperBoundRight callbacks for the LBA tree: a
// mapping's occupied logical range is [Laddr, Laddr+Length), so an
// adjacency query needs to add a block count onto a logical address.
func laddrAdd(k Laddr, n Laddr) Laddr { return k + n }

func mappingLength(m Mapping) Laddr { return Laddr(m.Length) }
