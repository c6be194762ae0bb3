package fixedkv

// GetStableForKey returns the nearest Stable ancestor version of n that
// still covers key, by walking n's prior-instance chain. Weak (read-only)
// transactions use this to avoid ever observing a MutationPending node,
// even one their own snapshot's path happens to pass through after a
// concurrent writer duplicated it.
func GetStableForKey[K any, V any](ops KeyOps[K], n *Node[K, V], key K) *Node[K, V] {
	for cur := n; cur != nil; cur = cur.PriorInstance() {
		if cur.IsStable() {
			if ops.Compare(key, cur.meta.Begin) >= 0 && ops.Compare(key, cur.meta.End) < 0 {
				return cur
			}
		}
	}
	return nil
}
