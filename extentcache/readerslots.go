package extentcache

import (
	"math"
	"sync/atomic"
)

// readerSlots tracks live reader transaction IDs in a fixed-size slot
// array, giving O(1) register/unregister with no allocation and an
// atomically-cached minimum, used to decide when a Retired extent's last
// possible reader has gone and its memory can actually be reclaimed.
type readerSlots struct {
	slots       []atomic.Uint64 // 0 means empty; txIDs are allocated starting at 1
	activeCount atomic.Int32
	minTxID     atomic.Uint64
}

func newReaderSlots(maxReaders int) *readerSlots {
	rs := &readerSlots{slots: make([]atomic.Uint64, maxReaders)}
	rs.minTxID.Store(math.MaxUint64)
	return rs
}

// register finds an empty slot and claims it for txID, returning the slot
// index, or -1 if every slot is taken.
func (rs *readerSlots) register(txID uint64) int {
	for i := range rs.slots {
		if rs.slots[i].CompareAndSwap(0, txID) {
			rs.activeCount.Add(1)
			for {
				cur := rs.minTxID.Load()
				if txID >= cur {
					break
				}
				if rs.minTxID.CompareAndSwap(cur, txID) {
					break
				}
			}
			return i
		}
	}
	return -1
}

// unregister releases slot, rescanning for a new minimum if the departing
// reader held it.
func (rs *readerSlots) unregister(slot int) {
	txID := rs.slots[slot].Load()
	rs.slots[slot].Store(0)

	if rs.activeCount.Add(-1) == 0 {
		rs.minTxID.Store(math.MaxUint64)
		return
	}
	if txID != 0 && txID == rs.minTxID.Load() {
		rs.rescanMin()
	}
}

func (rs *readerSlots) rescanMin() {
	min := uint64(math.MaxUint64)
	for i := range rs.slots {
		if txID := rs.slots[i].Load(); txID != 0 && txID < min {
			min = txID
		}
	}
	rs.minTxID.Store(min)
}

// minVisible returns the oldest transaction ID any live reader might still
// need to see, or math.MaxUint64 if there are no readers.
func (rs *readerSlots) minVisible() uint64 {
	if rs.activeCount.Load() == 0 {
		return math.MaxUint64
	}
	return rs.minTxID.Load()
}
