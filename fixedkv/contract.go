package fixedkv

// PresenceStatus is the answer Transaction.GetExtent gives for a debug
// reverse-lookup: whether the given paddr is visible to the transaction at
// all, without materializing it.
type PresenceStatus int

const (
	Absent PresenceStatus = iota
	Present
)

// Transaction is the collaborator the engine talks to for weak/strong
// distinction, debug extent presence checks and per-tree statistics. It
// intentionally carries no reference to K or V: transaction bookkeeping is
// the same regardless of what a tree stores.
type Transaction interface {
	// IsWeak reports whether this transaction is read-only and may never
	// observe a MutationPending extent as writable.
	IsWeak() bool
	// GetExtent is a debug-only reverse lookup: does this transaction
	// currently have paddr loaded?
	GetExtent(paddr Paddr) PresenceStatus
	// Stats returns this transaction's mutation counters.
	Stats() *TreeStats
}

// Cache is the extent cache contract: every access to a node's backing
// extent, and every
// allocation/duplication/retirement of one, goes through this interface. A
// concrete reference implementation lives in the extentcache package; the
// core engine has no other way to reach physical storage.
type Cache[K any, V any] interface {
	// GetRoot loads (or waits for) the current root block visible to tx.
	GetRoot(tx Transaction) (*RootBlock[K, V], error)
	// GetRootFast returns the root block without blocking, for callers
	// that already know one is resident.
	GetRootFast(tx Transaction) *RootBlock[K, V]
	// GetAbsentExtent atomically reserves and loads paddr, so that two
	// concurrent fetches for the same not-yet-resident extent never
	// produce two in-memory copies of the same stable extent.
	GetAbsentExtent(tx Transaction, paddr Paddr, kind ExtentKind) (*Node[K, V], error)
	// AllocNewNonDataExtent allocates a brand-new Fresh extent, not yet
	// backed by any stable version.
	AllocNewNonDataExtent(tx Transaction, kind ExtentKind, hint PlacementHint) (*Node[K, V], error)
	// DuplicateForWrite returns a MutationPending copy of n that tx may
	// freely mutate, leaving n itself (and any reader still viewing it)
	// untouched.
	DuplicateForWrite(tx Transaction, n *Node[K, V]) (*Node[K, V], error)
	// DuplicateRootForWrite is DuplicateForWrite's counterpart for the
	// root block itself.
	DuplicateRootForWrite(tx Transaction, r *RootBlock[K, V]) (*RootBlock[K, V], error)
	// RetireExtent marks n Retired: no future transaction may observe it
	// once the last reader that could still see it has released.
	RetireExtent(tx Transaction, n *Node[K, V]) error
	// TestQueryCache is a debug-only accessor used by tests to assert on
	// cache residency without going through the transaction.
	TestQueryCache(paddr Paddr) *Node[K, V]
}
