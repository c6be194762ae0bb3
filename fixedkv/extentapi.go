package fixedkv

// This file is the narrow surface a Cache implementation needs to
// construct and transition nodes without every Node field being exported
// to ordinary callers of the engine. Only extentcache-style Cache
// implementations should call these.

// CopyContentForDuplicate copies src's logical content (keys, values,
// children, meta) into dst and marks dst MutationPending with src as its
// prior instance, completing the duplicate_for_write protocol once a Cache
// implementation has allocated dst's physical identity.
func CopyContentForDuplicate[K any, V any](dst, src *Node[K, V]) {
	dst.leaf = src.leaf
	dst.meta = src.meta
	dst.keys = append([]K(nil), src.keys...)
	if src.leaf {
		dst.values = append([]V(nil), src.values...)
	} else {
		dst.children = append([]Paddr(nil), src.children...)
		dst.childPtrs = append([]*Node[K, V](nil), src.childPtrs...)
		relinkChildren(dst)
	}
	dst.parent = src.parent
	dst.parentIdx = src.parentIdx
	dst.linked = src.linked
	dst.state = stateMutationPending
	dst.priorInstance = src
}

// MarkStable transitions n to Stable with the given committed checksum,
// clearing its prior-instance link since it is now the durable version of
// record.
func MarkStable[K any, V any](n *Node[K, V], crc uint64) {
	n.state = stateStable
	n.inExtentChecksum = crc
	n.lastCommittedCRC = crc
	n.priorInstance = nil
}

// MarkRetired transitions n to Retired: no future transaction may resolve
// a lookup to it once every reader that could still observe it has gone.
func MarkRetired[K any, V any](n *Node[K, V]) {
	n.state = stateRetired
}

// CloneRootBlock returns a MutationPending copy of r for a Cache
// implementation's DuplicateRootForWrite.
func CloneRootBlock[K any, V any](r *RootBlock[K, V]) *RootBlock[K, V] {
	return r.clone()
}

// MarkRootStable clears a root block's pending flag and prior-version
// link once its transaction has committed.
func MarkRootStable[K any, V any](r *RootBlock[K, V]) {
	r.pending = false
	r.prior = nil
}
