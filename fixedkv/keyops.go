package fixedkv

// KeyOps supplies the total order and sentinel bounds a tree needs for a
// concrete key type K. It plays the role the original engine's key trait
// class plays: the tree itself never assumes anything about K beyond what
// KeyOps exposes.
type KeyOps[K any] interface {
	// Compare returns <0, 0, >0 as a<b, a==b, a>b.
	Compare(a, b K) int
	// Min returns the smallest representable key, used as the lower
	// sentinel for the leftmost lower_bound.
	Min() K
	// Max returns the largest representable key, used as the upper
	// sentinel for the rightmost upper_bound.
	Max() K
}

// Relocatable is implemented by value types V that embed a physical address
// relative to the paddr of the leaf that owns them. ValueAt calls Relocate
// to materialize the absolute address on read; it is a no-op for value
// types that don't hold a relative address.
type Relocatable[V any] interface {
	Relocate(leaf Paddr) V
}

func relocate[V any](v V, leaf Paddr) V {
	if r, ok := any(v).(Relocatable[V]); ok {
		return r.Relocate(leaf)
	}
	return v
}

// uint64Ops is a convenience KeyOps for any type defined as `type X uint64`.
// lba.Laddr and Paddr itself both use this shape.
type uint64Ops[K ~uint64] struct{}

func (uint64Ops[K]) Compare(a, b K) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (uint64Ops[K]) Min() K { return K(0) }

func (uint64Ops[K]) Max() K { return ^K(0) }

// Uint64Ops returns a KeyOps for any key type whose underlying type is
// uint64, ordered numerically with the full uint64 range as bounds.
func Uint64Ops[K ~uint64]() KeyOps[K] {
	return uint64Ops[K]{}
}
