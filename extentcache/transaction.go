package extentcache

import (
	"sync"
	"sync/atomic"

	"github.com/xelexin/fixedkv/fixedkv"
)

var nextTxID atomic.Uint64

// Transaction implements fixedkv.Transaction. It carries the tx-local
// bookkeeping the original engine's transaction object keeps: which
// extents it has already touched (for the debug reverse lookup) and its
// running tree_stats_t, grounded in transaction.go/tx.go's `pages` map and
// `addFreed` accounting, simplified to the fixed-size-KV domain.
type Transaction[K any, V any] struct {
	id    uint64
	weak  bool
	cache *Cache[K, V]

	mu          sync.Mutex
	touched     map[fixedkv.Paddr]struct{}
	freed       []fixedkv.Paddr
	pendingRoot *fixedkv.RootBlock[K, V]

	readerSlot int // -1 if not registered
	stats      fixedkv.TreeStats
}

func newTransaction[K any, V any](cache *Cache[K, V], weak bool) *Transaction[K, V] {
	tx := &Transaction[K, V]{
		id:         nextTxID.Add(1),
		weak:       weak,
		cache:      cache,
		touched:    make(map[fixedkv.Paddr]struct{}),
		readerSlot: -1,
	}
	if weak {
		tx.readerSlot = cache.readers.register(tx.id)
	}
	return tx
}

func (tx *Transaction[K, V]) ID() uint64 { return tx.id }

func (tx *Transaction[K, V]) IsWeak() bool { return tx.weak }

func (tx *Transaction[K, V]) GetExtent(paddr fixedkv.Paddr) fixedkv.PresenceStatus {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if _, ok := tx.touched[paddr]; ok {
		return fixedkv.Present
	}
	return fixedkv.Absent
}

func (tx *Transaction[K, V]) Stats() *fixedkv.TreeStats { return &tx.stats }

func (tx *Transaction[K, V]) touch(paddr fixedkv.Paddr) {
	tx.mu.Lock()
	tx.touched[paddr] = struct{}{}
	tx.mu.Unlock()
}

func (tx *Transaction[K, V]) addFreed(paddr fixedkv.Paddr) {
	tx.mu.Lock()
	tx.freed = append(tx.freed, paddr)
	tx.mu.Unlock()
}

// setPendingRoot records tx's own duplicated root block, kept private to
// tx until Commit publishes it — a concurrent transaction's GetRoot must
// never observe it beforehand.
func (tx *Transaction[K, V]) setPendingRoot(rb *fixedkv.RootBlock[K, V]) {
	tx.mu.Lock()
	tx.pendingRoot = rb
	tx.mu.Unlock()
}

func (tx *Transaction[K, V]) getPendingRoot() *fixedkv.RootBlock[K, V] {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.pendingRoot
}

// Commit finalizes every extent this transaction created or duplicated as
// Stable, publishes its root block (if it wrote one) and releases its
// reader slot. Extents it freed are returned to the arena at this point
// only if every registered reader has a larger transaction ID
// (readerSlots.minVisible); otherwise they are never returned.
func (tx *Transaction[K, V]) Commit() {
	tx.cache.commit(tx)
	if tx.readerSlot >= 0 {
		tx.cache.readers.unregister(tx.readerSlot)
	}
}

// Abort discards this transaction's writes without publishing them.
func (tx *Transaction[K, V]) Abort() {
	tx.cache.abort(tx)
	if tx.readerSlot >= 0 {
		tx.cache.readers.unregister(tx.readerSlot)
	}
}
