package fixedkv

// TreeStats accumulates structural mutation counters for one transaction,
// mirroring tree_stats_t in the original engine. The Cache/Transaction
// implementation is responsible for surfacing these; the core engine only
// updates them.
type TreeStats struct {
	Depth           uint8
	NumInserts      uint64
	NumErases       uint64
	NumUpdates      uint64
	NumSplits       uint64
	NumMerges       uint64
	NumBalances     uint64
	ExtentsNumDelta int64
}

func (s *TreeStats) recordInsert() { s.NumInserts++ }
func (s *TreeStats) recordUpdate() { s.NumUpdates++ }
func (s *TreeStats) recordErase()  { s.NumErases++ }

// recordSplit accounts for the extent a split allocates in addition to
// bumping the split counter — every handleSplit call allocates exactly one
// new sibling extent.
func (s *TreeStats) recordSplit() {
	s.NumSplits++
	s.ExtentsNumDelta++
}

// recordMerge accounts for the extent a merge retires — mergeInto always
// folds one extent into another and retires the emptied one.
func (s *TreeStats) recordMerge() {
	s.NumMerges++
	s.ExtentsNumDelta--
}

func (s *TreeStats) recordBalance() { s.NumBalances++ }

// recordRootGrowth accounts for growRoot's own new root extent (its
// subsequent handleSplit call accounts for the split's sibling extent
// separately via recordSplit) and the resulting depth increase.
func (s *TreeStats) recordRootGrowth() {
	s.Depth++
	s.ExtentsNumDelta++
}

// recordRootCollapse accounts for the discarded root shell extent and the
// resulting depth decrease.
func (s *TreeStats) recordRootCollapse() {
	if s.Depth > 0 {
		s.Depth--
	}
	s.ExtentsNumDelta--
}
