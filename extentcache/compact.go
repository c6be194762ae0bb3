package extentcache

import (
	"context"

	"github.com/xelexin/fixedkv/fixedkv"
)

// Compact rewrites every extent the hot-set tracker has marked cold to a
// freshly allocated address, giving the arena a chance to lay cold extents
// out together instead of scattering them across wherever they were
// originally allocated — the relocation pass the cache's cold-set
// bookkeeping exists to drive (see Cache's doc comment). Only extents
// still reachable from tx's current root are rewritten; anything a
// concurrent commit has already superseded is skipped rather than
// resurrected. Returns the number of extents actually relocated.
func Compact[K any, V any](ctx context.Context, tx fixedkv.Transaction, tree *fixedkv.BTree[K, V], cache *Cache[K, V]) (int, error) {
	relocated := 0
	for _, paddr := range cache.ColdExtents() {
		old, ok := cache.residentAt(paddr)
		if !ok || !old.IsStable() {
			continue
		}

		var live bool
		var err error
		if old.IsLeaf() {
			live, err = tree.GetLeafIfLive(ctx, tx, old)
		} else {
			live, err = tree.GetInternalIfLive(ctx, tx, old)
		}
		if err != nil {
			return relocated, err
		}
		if !live {
			continue
		}

		if _, err := tree.RewriteExtent(ctx, tx, old); err != nil {
			return relocated, err
		}
		relocated++
	}
	return relocated, nil
}
